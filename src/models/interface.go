package models

import (
	"context"
	"encoding/base64"
	"fmt"
)

// File is an attachment uploaded with a single request.
// Payload holds the content in standard base64, the way it arrives from clients.
type File struct {
	Name    string
	MIME    string
	Size    int64
	Payload string
}

// NewFile encodes data into a File.
func NewFile(name, mime string, data []byte) File {
	return File{
		Name:    name,
		MIME:    mime,
		Size:    int64(len(data)),
		Payload: base64.StdEncoding.EncodeToString(data),
	}
}

// Bytes decodes the payload.
func (f File) Bytes() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(f.Payload)
	if err != nil {
		return nil, fmt.Errorf("decode %q: %w", f.Name, err)
	}
	return data, nil
}

// Invoker is the uniform call contract every text provider implements.
// Providers that cannot take attachments ignore files.
type Invoker interface {
	Invoke(ctx context.Context, prompt string, files []File) (string, error)
}
