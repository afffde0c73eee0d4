package handlers

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const maxAvatarSize = 5 * 1024 * 1024 // 5MB

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
}

var allowedImageExts = map[string]bool{
	".jpeg": true,
	".jpg":  true,
	".png":  true,
	".gif":  true,
}

// readProfileImage returns the uploaded avatar bytes and MIME type, or
// (nil, "", nil) when no file was attached.
func readProfileImage(c *fiber.Ctx) ([]byte, string, error) {
	fileHeader, err := c.FormFile("profileImage")
	if err != nil {
		return nil, "", nil
	}

	if fileHeader.Size > maxAvatarSize {
		return nil, "", fmt.Errorf("image exceeds the 5MB limit")
	}

	contentType := fileHeader.Header.Get("Content-Type")
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !allowedImageTypes[contentType] || !allowedImageExts[ext] {
		return nil, "", fmt.Errorf("images only (jpeg, jpg, png, gif)")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, "", fmt.Errorf("could not read uploaded file")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxAvatarSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("could not read uploaded file")
	}
	if len(data) > maxAvatarSize {
		return nil, "", fmt.Errorf("image exceeds the 5MB limit")
	}

	return data, contentType, nil
}
