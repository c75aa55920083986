package species

import (
	"fmt"
	"path/filepath"
)

const (
	SpritesDir = "sprites"
	FieldDir   = "field"
)

// SpriteFile is the file name of a species sprite, e.g. sprite-007.png.
func SpriteFile(number int) string {
	return fmt.Sprintf("sprite-%03d.png", number)
}

// FieldFile is the file name of a species field image, e.g. field-007.png.
func FieldFile(number int) string {
	return fmt.Sprintf("field-%03d.png", number)
}

// SpritePath places the sprite under <imagesDir>/sprites.
func SpritePath(imagesDir string, number int) string {
	return filepath.Join(imagesDir, SpritesDir, SpriteFile(number))
}

// FieldPath places the field image under <imagesDir>/field.
func FieldPath(imagesDir string, number int) string {
	return filepath.Join(imagesDir, FieldDir, FieldFile(number))
}
