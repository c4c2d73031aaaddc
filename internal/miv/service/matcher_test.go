package service

import (
	"math"
	"testing"
)

func TestResolveKey(t *testing.T) {
	tests := []struct {
		name        string
		itemCode    string
		description string
		want        string
	}{
		{"料号优先", "pfs-100", "ELBOW 90 DEG", "PFS-100"},
		{"料号去空格", "  pfs-100  ", "ELBOW", "PFS-100"},
		{"料号为空退化到描述", "", "  elbow 90 deg  ", "ELBOW 90 DEG"},
		{"nan占位符退化到描述", "nan", "Gasket Spiral", "GASKET SPIRAL"},
		{"NaN大小写不敏感", "NaN", "Gasket Spiral", "GASKET SPIRAL"},
		{"null占位符", "NULL", "Bolt M20", "BOLT M20"},
		{"none占位符", "None", "Bolt M20", "BOLT M20"},
		{"两者皆空返回空串", "", "   ", ""},
		{"nan料号且描述为空", "nan", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveKey(tt.itemCode, tt.description)
			if got != tt.want {
				t.Errorf("ResolveKey(%q, %q) = %q, want %q", tt.itemCode, tt.description, got, tt.want)
			}
		})
	}
}

func TestResolveKeyIdempotent(t *testing.T) {
	// 已规范化的键再次解析必须不变，台账和清单两侧才能对得上
	inputs := [][2]string{
		{"PFS-100", "ELBOW"},
		{"", "GASKET SPIRAL 4IN"},
		{"nan", "PIPE SMLS 6IN"},
	}
	for _, in := range inputs {
		key := ResolveKey(in[0], in[1])
		if key == "" {
			t.Fatalf("unexpected empty key for %v", in)
		}
		if again := ResolveKey(key, ""); again != key {
			t.Errorf("ResolveKey not idempotent: %q -> %q", key, again)
		}
	}
}

func TestNormalizeLineNo(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`10"-PW-123456-A1`, "10pw123456a1"},
		{"10 PW 123456 A1", "10pw123456a1"},
		{"10,PW,123456,A1", "10pw123456a1"},
		{"10'-pw-123456-a1", "10pw123456a1"},
		{"", ""},
		{" - , ' \" ", ""},
	}
	for _, tt := range tests {
		if got := NormalizeLineNo(tt.in); got != tt.want {
			t.Errorf("NormalizeLineNo(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSuggestLines(t *testing.T) {
	candidates := []string{
		`10"-PW-123456-A1`,
		`10"-PW-123457-A1`,
		`6"-CW-654321-B2`,
		`10"-PW-123456-A1`, // 重复候选只返回一次
	}

	t.Run("全等写法差异仍是最高分", func(t *testing.T) {
		got := SuggestLines("10 PW 123456 A1", candidates, 5)
		if len(got) == 0 {
			t.Fatal("expected suggestions, got none")
		}
		if got[0].LineNo != `10"-PW-123456-A1` {
			t.Errorf("top suggestion = %q, want exact-ish match first", got[0].LineNo)
		}
		// 全等1.0 + 6位号段0.8 + 相似度0.5
		if math.Abs(got[0].Score-2.3) > 1e-9 {
			t.Errorf("top score = %v, want 2.3", got[0].Score)
		}
	})

	t.Run("重复候选去重", func(t *testing.T) {
		got := SuggestLines("10 PW 123456 A1", candidates, 10)
		seen := make(map[string]int)
		for _, s := range got {
			seen[s.LineNo]++
		}
		for line, n := range seen {
			if n > 1 {
				t.Errorf("candidate %q returned %d times", line, n)
			}
		}
	})

	t.Run("仅6位号段也能命中", func(t *testing.T) {
		got := SuggestLines("654321", candidates, 5)
		if len(got) == 0 {
			t.Fatal("expected six-digit match, got none")
		}
		if got[0].LineNo != `6"-CW-654321-B2` {
			t.Errorf("top suggestion = %q", got[0].LineNo)
		}
	})

	t.Run("topN截断", func(t *testing.T) {
		got := SuggestLines("10 PW 123456 A1", candidates, 1)
		if len(got) != 1 {
			t.Errorf("len = %d, want 1", len(got))
		}
	})

	t.Run("空输入返回nil", func(t *testing.T) {
		if got := SuggestLines("  - ", candidates, 5); got != nil {
			t.Errorf("expected nil, got %v", got)
		}
	})

	t.Run("毫不相干的输入被阈值过滤", func(t *testing.T) {
		got := SuggestLines("zzzz", candidates, 5)
		for _, s := range got {
			if s.Score <= 0.5 {
				t.Errorf("suggestion %q below threshold: %v", s.LineNo, s.Score)
			}
		}
	})
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"abc", "abc", 1.0},
		{"abc", "xyz", 0.0},
		{"", "abc", 0.0},
		{"abcd", "abxd", 0.75}, // LCS=3, 2*3/8
	}
	for _, tt := range tests {
		if got := similarity(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("similarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
