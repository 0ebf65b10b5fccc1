package replicate

import (
	"encoding/json"
)

// ResponseShapeError reports a prediction output that matched none of the
// shapes the gateway's models are known to produce.
type ResponseShapeError struct {
	Raw json.RawMessage
}

func (e *ResponseShapeError) Error() string {
	return "Unexpected mask/inpainting output format"
}

// NormalizeOutput extracts a single image URL from a prediction output.
// Models on the gateway disagree on output shape: some return a bare URL
// string, some an array of URLs, some an object with a url or img field,
// and some nest the object one level under "output". All of those
// collapse to the first usable URL; anything else is a
// *ResponseShapeError.
//
// Example:
//
//	NormalizeOutput([]byte(`"https://x/a.png"`))            // "https://x/a.png"
//	NormalizeOutput([]byte(`["https://x/a.png"]`))           // "https://x/a.png"
//	NormalizeOutput([]byte(`{"img": "https://x/a.png"}`))    // "https://x/a.png"
func NormalizeOutput(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", &ResponseShapeError{Raw: raw}
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s != "" {
			return s, nil
		}
		return "", &ResponseShapeError{Raw: raw}
	}

	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err == nil {
		for _, item := range arr {
			if url, err := NormalizeOutput(item); err == nil {
				return url, nil
			}
		}
		return "", &ResponseShapeError{Raw: raw}
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		for _, key := range []string{"url", "img"} {
			if inner, ok := obj[key]; ok {
				var u string
				if err := json.Unmarshal(inner, &u); err == nil && u != "" {
					return u, nil
				}
			}
		}
		if inner, ok := obj["output"]; ok {
			if url, err := NormalizeOutput(inner); err == nil {
				return url, nil
			}
		}
	}

	return "", &ResponseShapeError{Raw: raw}
}

// NormalizeOutputs extracts every image URL from a prediction output.
// Text-to-image models return candidate lists; single-image shapes come
// back as a one-element slice.
func NormalizeOutputs(raw json.RawMessage) ([]string, error) {
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err == nil {
		var urls []string
		for _, item := range arr {
			if url, err := NormalizeOutput(item); err == nil {
				urls = append(urls, url)
			}
		}
		if len(urls) == 0 {
			return nil, &ResponseShapeError{Raw: raw}
		}
		return urls, nil
	}

	url, err := NormalizeOutput(raw)
	if err != nil {
		return nil, err
	}
	return []string{url}, nil
}
