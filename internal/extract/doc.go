// Package extract implements the metadata extraction capability: given an
// image path it produces orientation, orientation-corrected pixel
// dimensions, the EXIF fields the slideshow displays, and rounded GPS
// coordinates. Missing or unreadable metadata degrades to defaults rather
// than failing the caller.
package extract
