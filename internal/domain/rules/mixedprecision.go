package rules

import (
	"strings"

	m "github.com/tempo-ml/tempo/internal/model"
)

// SubKind labels for the mixed-precision family.
const (
	SubKindAutocastContext  = "autocast_context"
	SubKindGradScaler       = "grad_scaler"
	SubKindPrecisionSetting = "precision_setting"
)

// precisionValues are the framework precision settings that imply reduced-bit
// training. Values like "16-mixed" and "bf16-mixed" are matched by token.
var precisionValues = []string{"16", "fp16", "bf16", "mixed"}

func mixedPrecisionCallRules() []CallRule {
	return []CallRule{
		{Target: "torch.autocast", Category: m.CategoryMixedPrecision, SubKind: SubKindAutocastContext},
		{Target: "torch.amp.autocast", Category: m.CategoryMixedPrecision, SubKind: SubKindAutocastContext},
		{Target: "torch.cuda.amp.autocast", Category: m.CategoryMixedPrecision, SubKind: SubKindAutocastContext},
		{Target: "torch.cpu.amp.autocast", Category: m.CategoryMixedPrecision, SubKind: SubKindAutocastContext},
		{Target: "torch.amp.GradScaler", Category: m.CategoryMixedPrecision, SubKind: SubKindGradScaler},
		{Target: "torch.cuda.amp.GradScaler", Category: m.CategoryMixedPrecision, SubKind: SubKindGradScaler},
	}
}

// precisionKeywordRule matches `precision=...` keyword settings, e.g. on a
// Lightning Trainer construction.
func precisionKeywordRule() KeywordRule {
	return KeywordRule{
		Name: "precision",
		Classify: func(value string) (m.Category, string, bool) {
			if IsPrecisionValue(value) {
				return m.CategoryMixedPrecision, SubKindPrecisionSetting, true
			}

			return "", "", false
		},
	}
}

// IsPrecisionValue reports whether a setting value names a reduced-bit
// precision mode.
func IsPrecisionValue(value string) bool {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return false
	}

	for _, token := range strings.FieldsFunc(value, func(r rune) bool { return r == '-' || r == '_' }) {
		for _, known := range precisionValues {
			if token == known {
				return true
			}
		}
	}

	return false
}

func mixedPrecisionTextRules() []TextRule {
	return []TextRule{
		{Needle: "autocast(", Category: m.CategoryMixedPrecision, SubKind: SubKindAutocastContext},
		{Needle: "GradScaler(", Category: m.CategoryMixedPrecision, SubKind: SubKindGradScaler},
	}
}
