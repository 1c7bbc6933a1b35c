package thumbnail

import (
	"errors"
	"testing"

	"github.com/disintegration/imaging"
)

func TestSizePolicy(t *testing.T) {
	tests := []struct {
		size    Size
		maxDim  int
		dirName string
	}{
		{SizeIcon, 150, "icon"},
		{SizePreview, 400, "preview"},
		{SizeLarge, 800, "large"},
	}

	for _, tt := range tests {
		t.Run(tt.dirName, func(t *testing.T) {
			if got := tt.size.MaxDimension(); got != tt.maxDim {
				t.Errorf("MaxDimension() = %d, want %d", got, tt.maxDim)
			}
			if got := tt.size.DirName(); got != tt.dirName {
				t.Errorf("DirName() = %q, want %q", got, tt.dirName)
			}
			if got := tt.size.String(); got != tt.dirName {
				t.Errorf("String() = %q, want %q", got, tt.dirName)
			}
		})
	}
}

func TestAllSizesOrder(t *testing.T) {
	sizes := AllSizes()
	want := []Size{SizeIcon, SizePreview, SizeLarge}
	if len(sizes) != len(want) {
		t.Fatalf("AllSizes() returned %d sizes, want %d", len(sizes), len(want))
	}
	for i := range want {
		if sizes[i] != want[i] {
			t.Errorf("AllSizes()[%d] = %v, want %v", i, sizes[i], want[i])
		}
	}

	// Callers must not be able to mutate the policy.
	sizes[0] = SizeLarge
	if AllSizes()[0] != SizeIcon {
		t.Error("AllSizes() exposes its backing array")
	}
}

func TestSizeFilter(t *testing.T) {
	// imaging filters are structs with a func field, so compare by support
	// radius: Linear has support 1.0, CatmullRom 2.0.
	if got := SizeIcon.Filter().Support; got != imaging.Linear.Support {
		t.Errorf("icon filter support = %v, want linear (%v)", got, imaging.Linear.Support)
	}
	for _, size := range []Size{SizePreview, SizeLarge} {
		if got := size.Filter().Support; got != imaging.CatmullRom.Support {
			t.Errorf("%s filter support = %v, want catmull-rom (%v)", size, got, imaging.CatmullRom.Support)
		}
	}
}

func TestUnknownSize(t *testing.T) {
	s := Size(42)
	if s.MaxDimension() != 0 {
		t.Errorf("MaxDimension() = %d, want 0", s.MaxDimension())
	}
	if s.DirName() != "size(42)" {
		t.Errorf("DirName() = %q, want size(42)", s.DirName())
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		input   string
		want    Size
		wantErr bool
	}{
		{"icon", SizeIcon, false},
		{"preview", SizePreview, false},
		{"large", SizeLarge, false},
		{"LARGE", SizeLarge, false},
		{" preview ", SizePreview, false},
		{"huge", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSize(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownSize) {
					t.Errorf("ParseSize(%q) error = %v, want ErrUnknownSize", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSize(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseSize(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}

	for _, size := range AllSizes() {
		if parsed, err := ParseSize(size.DirName()); err != nil || parsed != size {
			t.Errorf("ParseSize(DirName(%v)) = %v, %v", size, parsed, err)
		}
	}
}
