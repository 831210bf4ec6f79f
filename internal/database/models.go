package database

// Folder is one watched directory row.
type Folder struct {
	ID           int64
	Name         string
	LastModified float64
}

// FolderStamp is the scanner's upsert input for one visited directory.
type FolderStamp struct {
	Name         string
	LastModified float64
}

// FileStamp is the enumerator's upsert input for one image file.
type FileStamp struct {
	Dir          string
	Base         string
	Ext          string
	LastModified float64
}

// FileRef pairs a file id with its full path, as read from the all_data view.
type FileRef struct {
	ID    int64
	Fname string
}

// Meta holds the extracted metadata for one file. Width and height are
// orientation-corrected. Pointer fields are absent when the source image
// carried no such tag.
type Meta struct {
	Orientation  int      `json:"orientation"`
	TakenAt      float64  `json:"takenAt"`
	FNumber      float64  `json:"fNumber"`
	ExposureTime *string  `json:"exposureTime,omitempty"`
	ISO          float64  `json:"iso"`
	FocalLength  *string  `json:"focalLength,omitempty"`
	Make         *string  `json:"make,omitempty"`
	Model        *string  `json:"model,omitempty"`
	Lens         *string  `json:"lens,omitempty"`
	Rating       *int64   `json:"rating,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	Width        int      `json:"width"`
	Height       int      `json:"height"`
}

// NewMeta returns a Meta with the schema's default values.
func NewMeta() Meta {
	return Meta{Orientation: 1}
}

// MetaUpdate is one batched meta upsert, keyed through the all_data view by
// full path.
type MetaUpdate struct {
	Fname string
	Meta  Meta
}

// Slot is one slideshow display slot holding one file id, or two when a
// pair of portrait images shares the slide.
type Slot []int64

// FileInfo is one fully joined record from the all_data view.
type FileInfo struct {
	FileID       int64   `json:"fileId"`
	Fname        string  `json:"fname"`
	LastModified float64 `json:"lastModified"`
	Meta
	IsPortrait bool    `json:"isPortrait"`
	Location   *string `json:"location,omitempty"`
}
