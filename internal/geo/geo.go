// Package geo resolves destinations to countries and recommended trip
// lengths. Catalog data is authoritative; the model is a fallback, and a
// static rule table backs the model. Results are cached for the process
// lifetime to avoid redundant model calls.
package geo

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/planora/planora/internal/llm"
)

const (
	minDays = 3
	maxDays = 15

	// Model answers longer than this are not country names.
	maxCountryRunes = 20
)

// Completer is the slice of the completion client used for inference.
type Completer interface {
	Complete(ctx context.Context, instructions string, msgs []llm.Message, schema *llm.Schema) (string, error)
}

// CitySource resolves a city name to its country from the catalog.
type CitySource interface {
	CountryOfCity(ctx context.Context, name string) (string, error)
}

var (
	eastAsia      = set("日本", "韩国", "朝鲜", "中国台湾", "中国香港", "中国澳门", "新加坡")
	southeastAsia = set("泰国", "越南", "马来西亚", "印度尼西亚", "印尼", "菲律宾", "柬埔寨", "老挝", "缅甸", "文莱")
	europe        = set("英国", "法国", "德国", "意大利", "西班牙", "葡萄牙", "瑞士", "奥地利", "荷兰", "比利时",
		"挪威", "瑞典", "芬兰", "丹麦", "捷克", "希腊", "波兰", "匈牙利", "爱尔兰")
	americas = set("美国", "加拿大", "墨西哥", "巴西", "阿根廷", "智利", "秘鲁")
	oceania  = set("澳大利亚", "新西兰")
)

func set(items ...string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, s := range items {
		m[s] = true
	}
	return m
}

// Inferrer answers "what country is this destination in" and "how many days
// does a trip there need". Safe for concurrent use.
type Inferrer struct {
	llm     Completer
	cities  CitySource
	country *gocache.Cache
	days    *gocache.Cache
	group   singleflight.Group
}

// NewInferrer creates an Inferrer. llm may be nil, in which case only the
// catalog and the static table are consulted.
func NewInferrer(completer Completer, cities CitySource) *Inferrer {
	return &Inferrer{
		llm:     completer,
		cities:  cities,
		country: gocache.New(gocache.NoExpiration, 0),
		days:    gocache.New(gocache.NoExpiration, 0),
	}
}

// InferCountry resolves a destination string to a country name. Resolution
// order: cache, catalog city match, China keyword, model. When nothing
// resolves, the stripped destination itself is returned (the caller may be
// naming a country directly).
func (i *Inferrer) InferCountry(ctx context.Context, destination string) string {
	dest := stripQualifier(destination)
	if dest == "" {
		return ""
	}
	key := strings.ToLower(dest)
	if v, ok := i.country.Get(key); ok {
		return v.(string)
	}

	resolved, _, _ := i.group.Do("country:"+key, func() (any, error) {
		return i.resolveCountry(ctx, dest), nil
	})
	country := resolved.(string)
	if country != "" {
		i.country.Set(key, country, gocache.DefaultExpiration)
	}
	return country
}

func (i *Inferrer) resolveCountry(ctx context.Context, dest string) string {
	if i.cities != nil {
		if country, err := i.cities.CountryOfCity(ctx, dest); err == nil && country != "" {
			return country
		}
	}
	if strings.Contains(dest, "中国") || strings.EqualFold(dest, "china") {
		return "中国"
	}
	if i.llm != nil {
		if country := i.askCountry(ctx, dest); country != "" {
			return country
		}
	}
	return dest
}

func (i *Inferrer) askCountry(ctx context.Context, dest string) string {
	prompt := fmt.Sprintf(`请识别城市"%s"所属的国家。
只输出国家名称（中文），不要任何解释。如果不确定或不是有效城市，输出"未知"。

示例：
- 输入：大阪 → 输出：日本
- 输入：Osaka → 输出：日本
- 输入：清迈 → 输出：泰国
- 输入：香港 → 输出：中国香港

现在请识别：%s`, dest, dest)

	raw, err := i.llm.Complete(ctx, "", []llm.Message{{Role: "user", Content: prompt}}, nil)
	if err != nil {
		slog.Warn("country inference call failed", "destination", dest, "error", err)
		return ""
	}
	answer := strings.TrimSpace(strings.Trim(strings.TrimSpace(raw), `"“”`))
	if answer == "" || answer == "未知" || strings.EqualFold(answer, "unknown") {
		return ""
	}
	if utf8.RuneCountInString(answer) > maxCountryRunes || strings.ContainsAny(answer, ",:;。，：；！？!?\n") {
		return ""
	}
	return answer
}

// RecommendDays suggests a trip length for the destination, clamped to
// [3,15]. The model is asked first; any failure falls back to the static
// region table.
func (i *Inferrer) RecommendDays(ctx context.Context, destination string) int {
	country := i.InferCountry(ctx, destination)
	if country == "" {
		country = stripQualifier(destination)
	}
	if country == "" {
		return 5
	}
	if v, ok := i.days.Get(country); ok {
		return v.(int)
	}

	resolved, _, _ := i.group.Do("days:"+country, func() (any, error) {
		return i.resolveDays(ctx, country), nil
	})
	days := resolved.(int)
	i.days.Set(country, days, gocache.DefaultExpiration)
	return days
}

func (i *Inferrer) resolveDays(ctx context.Context, country string) int {
	if i.llm != nil {
		if days, ok := i.askDays(ctx, country); ok {
			return days
		}
	}
	return staticDays(country)
}

func (i *Inferrer) askDays(ctx context.Context, country string) (int, bool) {
	prompt := fmt.Sprintf(`请为去"%s"旅行推荐合适的天数。
只输出一个整数（3-15之间），不要任何解释。

推荐依据：
- 东亚国家（日本/韩国/新加坡）：4-5天
- 东南亚国家（泰国/越南/马来西亚）：6-7天
- 欧美澳新：9-12天
- 中国境内：3-5天

目的地：%s
推荐天数（仅输出数字）：`, country, country)

	raw, err := i.llm.Complete(ctx, "", []llm.Message{{Role: "user", Content: prompt}}, nil)
	if err != nil {
		slog.Warn("days recommendation call failed", "country", country, "error", err)
		return 0, false
	}
	days, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	if days < minDays {
		days = minDays
	}
	if days > maxDays {
		days = maxDays
	}
	return days, true
}

func staticDays(country string) int {
	switch {
	case country == "中国":
		return 3
	case eastAsia[country]:
		return 4
	case southeastAsia[country]:
		return 6
	case europe[country] || americas[country] || oceania[country]:
		return 9
	default:
		return 5
	}
}

// stripQualifier drops a trailing parenthetical qualifier, e.g. "大阪（关西）".
func stripQualifier(destination string) string {
	dest := destination
	for _, sep := range []string{"(", "（"} {
		if idx := strings.Index(dest, sep); idx >= 0 {
			dest = dest[:idx]
		}
	}
	return strings.TrimSpace(dest)
}
