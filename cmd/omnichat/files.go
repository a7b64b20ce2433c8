package main

import (
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/Protocol-Lattice/omnichat/src/models"
)

// readAttachment loads path as an upload, guessing the MIME type from the extension or content.
func readAttachment(path string) (models.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.File{}, err
	}
	mt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if mt == "" {
		mt = http.DetectContentType(data)
	}
	return models.NewFile(filepath.Base(path), mt, data), nil
}

// decodeDataURI splits a base64 data URI into MIME type and bytes.
func decodeDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, errors.New("not a data URI")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return "", nil, errors.New("data URI is not base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode data URI: %w", err)
	}
	return strings.TrimSuffix(meta, ";base64"), data, nil
}

// saveImage writes a data URI image to dir and returns the file path. URLs are returned unchanged.
func saveImage(dir, name, uri string) (string, error) {
	mt, data, err := decodeDataURI(uri)
	if err != nil {
		if strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://") {
			return uri, nil
		}
		return "", err
	}
	ext := ".png"
	if exts, _ := mime.ExtensionsByType(mt); len(exts) > 0 {
		ext = exts[0]
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
