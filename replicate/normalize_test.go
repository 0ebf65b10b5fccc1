package replicate

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestNormalizeOutput(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{
			name: "bare string",
			raw:  `"https://cdn.example.com/out.png"`,
			want: "https://cdn.example.com/out.png",
		},
		{
			name: "array of strings",
			raw:  `["https://cdn.example.com/a.png", "https://cdn.example.com/b.png"]`,
			want: "https://cdn.example.com/a.png",
		},
		{
			name: "array of url objects",
			raw:  `[{"url": "https://cdn.example.com/a.png"}]`,
			want: "https://cdn.example.com/a.png",
		},
		{
			name: "object with url",
			raw:  `{"url": "https://cdn.example.com/a.png"}`,
			want: "https://cdn.example.com/a.png",
		},
		{
			name: "object with img",
			raw:  `{"img": "https://cdn.example.com/a.png"}`,
			want: "https://cdn.example.com/a.png",
		},
		{
			name: "nested output object",
			raw:  `{"output": {"img": "https://cdn.example.com/a.png"}}`,
			want: "https://cdn.example.com/a.png",
		},
		{
			name: "nested output string",
			raw:  `{"output": "https://cdn.example.com/a.png"}`,
			want: "https://cdn.example.com/a.png",
		},
		{
			name:    "empty string",
			raw:     `""`,
			wantErr: true,
		},
		{
			name:    "empty array",
			raw:     `[]`,
			wantErr: true,
		},
		{
			name:    "number",
			raw:     `42`,
			wantErr: true,
		},
		{
			name:    "object without url keys",
			raw:     `{"status": "succeeded"}`,
			wantErr: true,
		},
		{
			name:    "null",
			raw:     `null`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeOutput(json.RawMessage(tt.raw))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("NormalizeOutput(%s) = %q, want error", tt.raw, got)
				}
				var shapeErr *ResponseShapeError
				if !errors.As(err, &shapeErr) {
					t.Errorf("error type = %T, want *ResponseShapeError", err)
				}
				if err.Error() != "Unexpected mask/inpainting output format" {
					t.Errorf("error message = %q", err.Error())
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeOutput(%s) error = %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("NormalizeOutput(%s) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeOutputNilInput(t *testing.T) {
	if _, err := NormalizeOutput(nil); err == nil {
		t.Fatal("NormalizeOutput(nil) succeeded, want error")
	}
}

func TestNormalizeOutputs(t *testing.T) {
	urls, err := NormalizeOutputs(json.RawMessage(`["https://x/a.png", "https://x/b.png"]`))
	if err != nil {
		t.Fatalf("NormalizeOutputs() error = %v", err)
	}
	if len(urls) != 2 || urls[0] != "https://x/a.png" || urls[1] != "https://x/b.png" {
		t.Errorf("NormalizeOutputs() = %v", urls)
	}

	urls, err = NormalizeOutputs(json.RawMessage(`"https://x/a.png"`))
	if err != nil {
		t.Fatalf("NormalizeOutputs(single) error = %v", err)
	}
	if len(urls) != 1 || urls[0] != "https://x/a.png" {
		t.Errorf("NormalizeOutputs(single) = %v", urls)
	}

	if _, err := NormalizeOutputs(json.RawMessage(`[]`)); err == nil {
		t.Error("NormalizeOutputs(empty array) succeeded, want error")
	}
}
