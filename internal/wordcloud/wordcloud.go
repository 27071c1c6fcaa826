package wordcloud

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hiqiancheng/PoliPlay/internal/models"
)

const (
	DefaultMaxEntries = 30
	DefaultMinEntries = 10

	// backfill weights count down from here and never go below 1
	backfillStartWeight = 15
	minTokenLength      = 2
)

// Vocabulary holds governance terms that must survive segmentation intact
var Vocabulary = []string{
	"高质量发展", "新质生产力", "供给侧改革", "乡村振兴", "共同富裕", "营商环境",
	"数字政府", "数字经济", "放管服", "一网通办", "简政放权", "碳达峰", "碳中和",
	"基层治理", "社会治理", "社会保障", "公共服务", "民生保障", "产业升级",
	"绿色发展", "城乡融合", "区域协调", "中小企业", "财政补贴", "实施细则",
	"配套措施", "政策落实", "监督评估", "营商主体", "依法行政",
}

// DefaultTerms fill a sparse word cloud after the upstream tags
var DefaultTerms = []string{
	"发展", "创新", "改革", "民生", "环保", "科技", "产业",
	"治理", "服务", "质量", "效率", "协调", "开放", "共享",
}

var stopwords = toSet([]string{
	"我们", "你们", "他们", "她们", "它们", "这个", "那个", "这些", "那些", "这样", "那样",
	"一个", "一些", "一种", "以及", "或者", "但是", "因为", "所以", "如果", "虽然", "而且",
	"并且", "然后", "可以", "可能", "已经", "进行", "通过", "对于", "关于", "其中", "没有",
	"需要", "应该", "能够", "自己", "什么", "还是", "就是", "目前", "同时", "相关", "方面",
	"具有", "为了", "由于", "其他", "之间", "不断", "更加", "非常", "比较", "有关",
	"the", "and", "for", "with", "that", "this", "are", "was", "were", "from",
	"have", "has", "not", "but", "its", "our", "their", "into", "will", "can",
})

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Tokenizer splits text into content words. Vocabulary terms found verbatim
// are taken whole before the remaining gaps go through the segmenter.
type Tokenizer struct {
	seg   Segmenter
	vocab []string
}

// NewTokenizer creates a tokenizer; a nil segmenter falls back to RunSegmenter
func NewTokenizer(seg Segmenter, vocab []string) *Tokenizer {
	if seg == nil {
		seg = RunSegmenter{}
	}

	terms := make([]string, 0, len(vocab))
	seen := make(map[string]struct{}, len(vocab))
	for _, v := range vocab {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		terms = append(terms, v)
	}
	// longest match wins
	sort.SliceStable(terms, func(i, j int) bool {
		return utf8.RuneCountInString(terms[i]) > utf8.RuneCountInString(terms[j])
	})

	return &Tokenizer{seg: seg, vocab: terms}
}

// Tokenize returns the surviving tokens in text order
func (t *Tokenizer) Tokenize(text string) []string {
	var raw []string
	gapStart := 0
	for i := 0; i < len(text); {
		if term := t.vocabAt(text[i:]); term != "" {
			raw = append(raw, t.seg.Cut(text[gapStart:i])...)
			raw = append(raw, term)
			i += len(term)
			gapStart = i
			continue
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		i += size
	}
	raw = append(raw, t.seg.Cut(text[gapStart:])...)

	tokens := make([]string, 0, len(raw))
	hasHan := false
	for _, tok := range raw {
		tok = strings.ToLower(strings.TrimSpace(tok))
		if utf8.RuneCountInString(tok) < minTokenLength {
			continue
		}
		if _, stop := stopwords[tok]; stop {
			continue
		}
		if !containsFunc(tok, unicode.IsLetter) {
			continue
		}
		if containsHan(tok) {
			hasHan = true
		}
		tokens = append(tokens, tok)
	}

	if !hasHan {
		return tokens
	}

	filtered := tokens[:0]
	for _, tok := range tokens {
		if containsHan(tok) {
			filtered = append(filtered, tok)
		}
	}
	return filtered
}

func (t *Tokenizer) vocabAt(s string) string {
	for _, term := range t.vocab {
		if strings.HasPrefix(s, term) {
			return term
		}
	}
	return ""
}

func containsHan(s string) bool {
	return containsFunc(s, func(r rune) bool { return unicode.Is(unicode.Han, r) })
}

func containsFunc(s string, f func(rune) bool) bool {
	return strings.IndexFunc(s, f) >= 0
}

// Rank counts tokens and orders them by descending frequency. Ties keep
// first-seen order. limit <= 0 keeps everything.
func Rank(tokens []string, limit int) []models.WordCloudEntry {
	counts := make(map[string]int, len(tokens))
	order := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, ok := counts[tok]; !ok {
			order = append(order, tok)
		}
		counts[tok]++
	}

	entries := make([]models.WordCloudEntry, 0, len(order))
	for _, tok := range order {
		entries = append(entries, models.WordCloudEntry{Text: tok, Weight: counts[tok]})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Weight > entries[j].Weight
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// Backfill appends tags, then default terms, until entries reaches min.
// One synthetic weight counts down across both sources. Terms already
// present are skipped. Appended entries may outweigh the ranked ones
// before them.
func Backfill(entries []models.WordCloudEntry, tags, defaults []string, min int) []models.WordCloudEntry {
	if len(entries) >= min {
		return entries
	}

	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		seen[e.Text] = struct{}{}
	}

	weight := backfillStartWeight
	for _, source := range [][]string{tags, defaults} {
		for _, term := range source {
			if len(entries) >= min {
				return entries
			}
			term = strings.TrimSpace(term)
			if term == "" {
				continue
			}
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			entries = append(entries, models.WordCloudEntry{Text: term, Weight: weight})
			if weight > 1 {
				weight--
			}
		}
	}
	return entries
}

// Builder produces the word cloud of a report
type Builder struct {
	tokenizer  *Tokenizer
	maxEntries int
	minEntries int
	defaults   []string
}

// NewBuilder creates a builder with the standard limits and default terms
func NewBuilder(tokenizer *Tokenizer) *Builder {
	if tokenizer == nil {
		tokenizer = NewTokenizer(nil, Vocabulary)
	}
	return &Builder{
		tokenizer:  tokenizer,
		maxEntries: DefaultMaxEntries,
		minEntries: DefaultMinEntries,
		defaults:   DefaultTerms,
	}
}

// Build ranks the words of text and backfills from tags when sparse
func (b *Builder) Build(text string, tags []string) []models.WordCloudEntry {
	entries := Rank(b.tokenizer.Tokenize(text), b.maxEntries)
	return Backfill(entries, tags, b.defaults, b.minEntries)
}
