package utils

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func TestAngleConversion(t *testing.T) {
	test.That(t, DegToRad(180), test.ShouldEqual, math.Pi)
	test.That(t, DegToRad(-90), test.ShouldAlmostEqual, -math.Pi/2)
	test.That(t, RadToDeg(math.Pi/4), test.ShouldAlmostEqual, 45)
	test.That(t, RadToDeg(DegToRad(12.5)), test.ShouldAlmostEqual, 12.5)
}

func TestIsFinite(t *testing.T) {
	test.That(t, IsFinite(0), test.ShouldBeTrue)
	test.That(t, IsFinite(-1e308), test.ShouldBeTrue)
	test.That(t, IsFinite(math.NaN()), test.ShouldBeFalse)
	test.That(t, IsFinite(math.Inf(-1)), test.ShouldBeFalse)
}
