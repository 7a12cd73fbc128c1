package coupling

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestStrengthValues(t *testing.T) {
	if !(StrengthContract.Value() < StrengthModel.Value() &&
		StrengthModel.Value() < StrengthFunctional.Value() &&
		StrengthFunctional.Value() < StrengthIntrusive.Value()) {
		t.Error("strength values must be strictly increasing")
	}
}

func TestBalanceValue(t *testing.T) {
	// S=0.6, D=0.25: modularity = 0.6+0.25-2*0.15 = 0.55
	// V=0.2: balance = 0.55 + 0.8 - 0.55*0.8 = 0.91
	got := BalanceValue(StrengthFunctional, DistanceSameModule, VolatilityLow)
	if !almostEqual(got, 0.91) {
		t.Errorf("BalanceValue = %v, want 0.91", got)
	}
}

func TestBalanceRange(t *testing.T) {
	strengths := []Strength{StrengthContract, StrengthModel, StrengthFunctional, StrengthIntrusive}
	distances := []Distance{DistanceSameFunction, DistanceSameModule, DistanceDifferentModule, DistanceDifferentCrate}
	volatilities := []Volatility{VolatilityLow, VolatilityMedium, VolatilityHigh, VolatilityUnknown}

	for _, s := range strengths {
		for _, d := range distances {
			for _, v := range volatilities {
				b := BalanceValue(s, d, v)
				if b < 0 || b > 1 {
					t.Errorf("BalanceValue(%s, %s, %s) = %v out of [0,1]", s, d, v, b)
				}
			}
		}
	}
}

// Holding S and D fixed, increasing volatility must not increase balance.
func TestBalanceMonotonicInVolatility(t *testing.T) {
	for _, s := range []Strength{StrengthContract, StrengthIntrusive} {
		for _, d := range []Distance{DistanceSameModule, DistanceDifferentCrate} {
			low := BalanceValue(s, d, VolatilityLow)
			med := BalanceValue(s, d, VolatilityMedium)
			high := BalanceValue(s, d, VolatilityHigh)
			if med > low || high > med {
				t.Errorf("balance not monotone for S=%s D=%s: %v %v %v", s, d, low, med, high)
			}
		}
	}
}

// Swapping an edge from strong+close to strong+far must not improve balance.
func TestBalanceCaseSwap(t *testing.T) {
	for _, v := range []Volatility{VolatilityLow, VolatilityMedium, VolatilityHigh} {
		caseB := BalanceValue(StrengthIntrusive, DistanceSameModule, v)
		caseA := BalanceValue(StrengthIntrusive, DistanceDifferentCrate, v)
		if caseA > caseB {
			t.Errorf("strong+far (%v) scored above strong+close (%v) at V=%s", caseA, caseB, v)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		s    Strength
		d    Distance
		want Classification
	}{
		{StrengthIntrusive, DistanceDifferentCrate, ClassGlobalComplexity},
		{StrengthFunctional, DistanceDifferentModule, ClassGlobalComplexity},
		{StrengthFunctional, DistanceSameModule, ClassHighCohesion},
		{StrengthContract, DistanceDifferentModule, ClassLooseCoupling},
		{StrengthContract, DistanceSameModule, ClassLocalComplexity},
		{StrengthModel, DistanceSameFunction, ClassLocalComplexity},
	}

	for _, tt := range tests {
		if got := Classify(tt.s, tt.d); got != tt.want {
			t.Errorf("Classify(%s, %s) = %s, want %s", tt.s, tt.d, got, tt.want)
		}
	}
}

func TestGrade(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{0.95, "A"},
		{0.90, "A"},
		{0.85, "B"},
		{0.70, "C"},
		{0.50, "D"},
		{0.30, "F"},
	}

	for _, tt := range tests {
		if got := Grade(tt.score); got != tt.want {
			t.Errorf("Grade(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestDistanceBetween(t *testing.T) {
	tests := []struct {
		name string
		src  string
		tgt  string
		want Distance
	}{
		{name: "Same module", src: "pkg::svc", tgt: "pkg::svc", want: DistanceSameModule},
		{name: "Sibling modules", src: "util::a", tgt: "util::b", want: DistanceSameModule},
		{name: "Nested cousin", src: "app::ui", tgt: "app::core::db", want: DistanceDifferentModule},
		{name: "Different crates", src: "appA::core", tgt: "appB::internal", want: DistanceDifferentCrate},
		{name: "Crate root to child", src: "app", tgt: "app::core", want: DistanceDifferentModule},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceBetween(parse(tt.src), parse(tt.tgt))
			if got != tt.want {
				t.Errorf("DistanceBetween(%s, %s) = %s, want %s", tt.src, tt.tgt, got, tt.want)
			}
		})
	}
}

func TestStrengthOfContexts(t *testing.T) {
	tests := []struct {
		ctx  UsageContext
		want Strength
	}{
		{ContextFieldAccess, StrengthIntrusive},
		{ContextStructConstruction, StrengthIntrusive},
		{ContextInherentImplBlock, StrengthIntrusive},
		{ContextMethodCall, StrengthFunctional},
		{ContextFunctionCall, StrengthFunctional},
		{ContextFunctionParameter, StrengthFunctional},
		{ContextReturnType, StrengthFunctional},
		{ContextTypeParameter, StrengthModel},
		{ContextImport, StrengthModel},
		{ContextTraitBound, StrengthContract},
	}

	for _, tt := range tests {
		if got := StrengthOf(tt.ctx); got != tt.want {
			t.Errorf("StrengthOf(%s) = %s, want %s", tt.ctx, got, tt.want)
		}
	}
}
