package service

import (
	"regexp"
	"sort"
	"strings"
)

// 物料键解析与管线号匹配。
// MTO清单和消耗台账由不同人维护，料号为空时退化为按描述匹配，
// 两侧必须使用完全相同的规范化规则，否则历史记录对不上。

var (
	lineNoStripRe = regexp.MustCompile(`[\s,\-'"]`)
	sixDigitsRe   = regexp.MustCompile(`\d{6}`)
)

// ResolveKey 解析规范化物料键：料号非空且不是空值占位符时取料号（去空格转大写），
// 否则取描述（去空格转大写）。两个输入都为空时返回空串，调用方必须视为错误。
func ResolveKey(itemCode, description string) string {
	code := strings.TrimSpace(itemCode)
	switch strings.ToLower(code) {
	case "", "nan", "null", "none":
		return strings.ToUpper(strings.TrimSpace(description))
	}
	return strings.ToUpper(code)
}

// NormalizeLineNo 管线号规范化：去掉空白、逗号、横线、引号并转小写。
// 不同图纸上同一条管线的写法经常只差这些分隔符。
func NormalizeLineNo(lineNo string) string {
	return strings.ToLower(lineNoStripRe.ReplaceAllString(lineNo, ""))
}

// LineSuggestion 管线号模糊匹配建议
type LineSuggestion struct {
	LineNo string  `json:"line_no"`
	Score  float64 `json:"score"`
}

// SuggestLines 对输入做模糊匹配，返回得分高于阈值的前topN条管线号。
// 打分规则：规范化后全等记1.0，包含输入中的6位数字段记0.8，再叠加相似度×0.5。
func SuggestLines(input string, candidates []string, topN int) []LineSuggestion {
	normInput := NormalizeLineNo(input)
	if normInput == "" {
		return nil
	}
	sixDigits := sixDigitsRe.FindString(input)

	var out []LineSuggestion
	seen := make(map[string]bool)
	for _, cand := range candidates {
		if cand == "" || seen[cand] {
			continue
		}
		seen[cand] = true

		normCand := NormalizeLineNo(cand)
		score := 0.0
		if normInput == normCand {
			score = 1.0
		}
		if sixDigits != "" && strings.Contains(normCand, sixDigits) {
			score += 0.8
		}
		score += similarity(normInput, normCand) * 0.5

		if score > 0.5 {
			out = append(out, LineSuggestion{LineNo: cand, Score: score})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out
}

// similarity 基于最长公共子序列的相似度，值域[0,1]：2*LCS/(len(a)+len(b))
func similarity(a, b string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			if ra[i-1] == rb[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	lcs := prev[len(rb)]
	return 2.0 * float64(lcs) / float64(len(ra)+len(rb))
}
