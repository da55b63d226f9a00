package terrain

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestProceduralFieldsStayInRange(t *testing.T) {
	p := NewProcedural(8, 2)
	sun := Sun{Position: mgl64.Vec3{30, 0, 30}}
	for x := -20.0; x <= 20; x += 1.7 {
		for y := -20.0; y <= 20; y += 1.3 {
			if m := p.Moisture(x, y); m < MinMoisture || m > MaxMoisture {
				t.Fatalf("moisture at (%v,%v) out of range: %v", x, y, m)
			}
			if s := p.Sunlight(x, y, sun); s < MinSunlight || s > MaxSunlight {
				t.Fatalf("sunlight at (%v,%v) out of range: %v", x, y, s)
			}
			if h := p.Height(x, y); math.Abs(h) > 1.5*p.HeightAmp+1e-9 {
				t.Fatalf("height at (%v,%v) exceeds amplitude: %v", x, y, h)
			}
		}
	}
}

func TestProceduralIsDeterministic(t *testing.T) {
	a, b := NewProcedural(8, 2), NewProcedural(8, 2)
	sun := Sun{Position: mgl64.Vec3{25, -20, 30}}
	if a.Height(3.3, -1.2) != b.Height(3.3, -1.2) {
		t.Fatalf("height differs between identical terrains")
	}
	if a.Sunlight(3.3, -1.2, sun) != b.Sunlight(3.3, -1.2, sun) {
		t.Fatalf("sunlight differs between identical terrains")
	}
}

func TestNewProceduralDefaults(t *testing.T) {
	p := NewProcedural(0, -1)
	if p.Scale != 10 || p.HeightAmp != 2.5 {
		t.Fatalf("unexpected defaults: %+v", p)
	}
}

func TestSunDirectionDegenerate(t *testing.T) {
	sun := Sun{Position: mgl64.Vec3{1, 2, 3}}
	if d := sun.DirectionTo(mgl64.Vec3{1, 2, 3}); d != (mgl64.Vec3{0, 0, 1}) {
		t.Fatalf("expected straight up for degenerate direction, got %v", d)
	}
	d := sun.DirectionTo(mgl64.Vec3{1, 2, 0})
	if !d.ApproxEqual(mgl64.Vec3{0, 0, 1}) {
		t.Fatalf("expected sun directly overhead, got %v", d)
	}
}

func TestFlatIsUniform(t *testing.T) {
	f := Flat{Z: 1.5, Wetness: 0.4, Light: 0.7}
	if f.Height(-4, 9) != 1.5 || f.Moisture(3, 3) != 0.4 || f.Sunlight(0, 0, Sun{}) != 0.7 || f.Slope(1, 1) != 0 {
		t.Fatalf("flat terrain returned non-uniform values")
	}
}
