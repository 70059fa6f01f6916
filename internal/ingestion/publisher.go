package ingestion

import (
	"net/url"
	"strings"
)

// PublisherResolver maps an article URL to a human-readable publisher name.
// ok is false when the publisher is unknown.
type PublisherResolver interface {
	Resolve(rawURL string) (name string, ok bool)
}

// TableResolver resolves publishers through a static host → name table.
type TableResolver struct {
	hosts map[string]string
}

// NewTableResolver builds a resolver over hosts. A nil map selects the
// built-in Korean news publisher table.
func NewTableResolver(hosts map[string]string) *TableResolver {
	if hosts == nil {
		hosts = defaultPublishers
	}
	return &TableResolver{hosts: hosts}
}

// Resolve looks up the host of rawURL, with any "www." prefix removed.
func (r *TableResolver) Resolve(rawURL string) (string, bool) {
	host := ExtractDomain(rawURL)
	if host == "" {
		return "", false
	}
	name, ok := r.hosts[host]
	return name, ok
}

// ExtractDomain returns the lower-cased host of rawURL without a leading
// "www.", or "" when rawURL has no host.
func ExtractDomain(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	host := strings.ToLower(parsed.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// defaultPublishers is the publisher table used when the collector runs
// against the Naver news search API.
var defaultPublishers = map[string]string{
	"yonhapnews.co.kr":            "연합뉴스",
	"yonhapnewstv.co.kr":          "연합뉴스TV",
	"yna.co.kr":                   "연합뉴스",
	"news1.kr":                    "뉴스1",
	"edu.donga.com":               "동아일보",
	"biz.heraldcorp.com":          "헤럴드경제",
	"daily.hankooki.com":          "한국일보",
	"hankooki.com":                "한겨레",
	"hani.co.kr":                  "한겨레",
	"kmib.co.kr":                  "기독교일보",
	"news.kmib.co.kr":             "국민일보",
	"kbs.co.kr":                   "KBS",
	"munhwa.com":                  "문화일보",
	"sports.naver.com":            "네이버 스포츠",
	"news.naver.com":              "네이버 뉴스",
	"n.news.naver.com":            "네이버 뉴스",
	"m.post.naver.com":            "네이버 포스트",
	"newsis.com":                  "뉴시스",
	"segye.com":                   "세계일보",
	"chosun.com":                  "조선일보",
	"sports.chosun.com":           "스포츠조선",
	"joongang.co.kr":              "중앙일보",
	"koreajoongangdaily.joins.com": "Korea JoongAng Daily",
	"khan.co.kr":                  "경향신문",
	"sports.donga.com":            "스포츠동아",
	"seoul.co.kr":                 "서울신문",
	"etnews.com":                  "전자신문",
	"ytn.co.kr":                   "YTN",
	"tbs.seoul.kr":                "TBS",
	"mbn.co.kr":                   "MBN 뉴스",
	"imbc.com":                    "MBC 뉴스",
	"newdaily.co.kr":              "뉴데일리",
	"naeil.com":                   "내일신문",
	"kihoilbo.co.kr":              "기호일보",
	"edaily.co.kr":                "이데일리",
	"fnnews.com":                  "파이넨셜뉴스",
	"hankyung.com":                "한국경제신문",
	"incheonnews.com":             "인천뉴스",
	"bloter.net":                  "BROTER",
	"dt.co.kr":                    "디지털타임스",
	"sentv.co.kr":                 "서울경제TV",
	"sedaily.com":                 "서울경제",
	"econovill.com":               "이코노믹 리뷰",
	"nytimes.com":                 "The New York Times",
	"digitaltoday.co.kr":          "Digital Today",
	"ddaily.co.kr":                "디지털 데일리",
	"sportsseoul.com":             "스포츠서울",
	"joongboo.com":                "중부일보",
	"nocutnews.co.kr":             "노컷뉴스",
	"news.mt.co.kr":               "머니투데이",
}
