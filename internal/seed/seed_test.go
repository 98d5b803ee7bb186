package seed

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestContentSeedDeterministic(t *testing.T) {
	a := mat.NewDense(2, 3, []float64{255, 0, 0, 0, 0, 255})
	b := mat.NewDense(2, 3, []float64{255, 0, 0, 0, 0, 255})
	c := mat.NewDense(2, 3, []float64{255, 0, 0, 0, 255, 0})

	sa, err := ContentSeed(a)
	if err != nil {
		t.Fatalf("ContentSeed() error = %v", err)
	}
	sb, _ := ContentSeed(b)
	sc, _ := ContentSeed(c)

	if sa != sb {
		t.Errorf("identical pixels produced different seeds: %d vs %d", sa, sb)
	}
	if sa == sc {
		t.Errorf("different pixels produced the same seed %d", sa)
	}
}

func TestCalculate(t *testing.T) {
	pixels := mat.NewDense(1, 3, []float64{1, 2, 3})

	tests := []struct {
		name    string
		pixels  *mat.Dense
		path    string
		config  Config
		want    int64
		check   bool
		wantErr bool
	}{
		{name: "manual", config: Config{Mode: ModeManual, Value: 42}, want: 42, check: true},
		{name: "content", pixels: pixels, config: Config{Mode: ModeContent}},
		{name: "default mode is content", pixels: pixels, config: Config{}},
		{name: "content without pixels", config: Config{Mode: ModeContent}, wantErr: true},
		{name: "filepath", path: "images/a.png", config: Config{Mode: ModeFilepath}},
		{name: "filepath without path", config: Config{Mode: ModeFilepath}, wantErr: true},
		{name: "unknown", config: Config{Mode: "bogus"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Calculate(tt.pixels, tt.path, tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Calculate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check && got != tt.want {
				t.Errorf("Calculate() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFilepathSeedStable(t *testing.T) {
	a, err := FilepathSeed("images/a.png")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := FilepathSeed("images/a.png")
	c, _ := FilepathSeed("images/b.png")
	if a != b {
		t.Errorf("same path produced different seeds")
	}
	if a == c {
		t.Errorf("different paths produced the same seed")
	}
}

func TestParseMode(t *testing.T) {
	for _, m := range ValidModes() {
		if got, err := ParseMode(string(m)); err != nil || got != m {
			t.Errorf("ParseMode(%q) = %q, %v", m, got, err)
		}
	}
	if _, err := ParseMode("sometimes"); err == nil {
		t.Error("ParseMode accepted an invalid mode")
	}
}
