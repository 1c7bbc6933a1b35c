package thumbnail

import "testing"

func TestIsSupportedImage(t *testing.T) {
	tests := []struct {
		mime string
		want bool
	}{
		{"image/jpeg", true},
		{"image/png", true},
		{"image/gif", true},
		{"image/webp", true},
		{"IMAGE/JPEG", true},
		{"image/png; charset=binary", true},
		{" image/gif ", true},
		{"image/jpg", false},
		{"image/bmp", false},
		{"image/tiff", false},
		{"image/svg+xml", false},
		{"image/heic", false},
		{"video/mp4", false},
		{"application/octet-stream", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			if got := IsSupportedImage(tt.mime); got != tt.want {
				t.Errorf("IsSupportedImage(%q) = %v, want %v", tt.mime, got, tt.want)
			}
		})
	}
}
