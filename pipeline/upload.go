package pipeline

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"
)

// stabilizeImage turns an image reference into a URL the gateway can
// fetch. Plain http(s) URLs pass through unchanged; inline data URIs
// (rasterized pages from the client, inline model outputs) are uploaded
// to the gateway's file store first, since prediction inputs reject
// large inline payloads.
func stabilizeImage(ctx context.Context, up Uploader, ref, name string) (string, error) {
	if !strings.HasPrefix(ref, "data:") {
		return ref, nil
	}
	payload, ext, err := decodeDataURI(ref)
	if err != nil {
		return "", fmt.Errorf("decoding %s image: %w", name, err)
	}
	upload, err := up.UploadFile(ctx, name+ext, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("uploading %s image: %w", name, err)
	}
	return upload.URLs.Get, nil
}

// decodeDataURI extracts the payload of a base64 data URI and picks an
// upload filename extension from its media type.
func decodeDataURI(uri string) ([]byte, string, error) {
	meta, data, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, "", fmt.Errorf("malformed data URI")
	}
	mediaType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return nil, "", fmt.Errorf("unsupported data URI encoding %q", meta)
	}
	payload, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, "", fmt.Errorf("decoding data URI payload: %w", err)
	}
	ext := ".png"
	switch mediaType {
	case "image/jpeg":
		ext = ".jpg"
	case "image/webp":
		ext = ".webp"
	}
	return payload, ext, nil
}
