package importer

import (
	"fmt"
	"regexp"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// Layout positionally assigns semantic roles to fields for one known field
// count of a platform's export. An index of -1 means the role is absent.
type Layout struct {
	// MinFields is the smallest field count this layout applies to.
	MinFields int

	DateTime      int
	Category      int
	Counterparty  int
	Account       int
	Description   int
	Direction     int
	Amount        int
	PaymentMethod int
	Status        int
}

// PlatformProfile is the static descriptor for one supported export format.
type PlatformProfile struct {
	ID   string
	Name string

	// Encoding is the declared text encoding of the export file. "gb18030"
	// covers the legacy GB2312 exports; anything else is treated as UTF-8.
	Encoding string

	// Header detection: the first line containing RequiredKeyword plus any
	// one of AnyKeywords marks the header; data starts on the next line.
	RequiredKeyword string
	AnyKeywords     []string

	// DataPattern is the fallback used when no header line exists: data
	// starts at the first matching line (inclusive).
	DataPattern *regexp.Regexp

	// FallbackOffset is the last-resort data start line when neither the
	// header keywords nor DataPattern match. Degraded mode: rows before the
	// real data will fail field-count or amount checks and be dropped.
	FallbackOffset int

	// MinFields drops rows with fewer fields before layout selection.
	MinFields int

	// Layouts ordered from widest to narrowest; the first whose MinFields
	// fits the row is used.
	Layouts []Layout

	// RequireMarker makes the profile skip rows whose direction marker is
	// neither ExpenseMarker nor IncomeMarker. Profiles with RequireMarker
	// false accept any row with a parseable amount and let the run's
	// DirectionPolicy decide the type of unmarked rows.
	RequireMarker bool

	ExpenseMarker string
	IncomeMarker  string

	// DateLayout is the platform's native date/time format.
	DateLayout string
}

// dateTimePattern matches the leading timestamp of a data row in both
// supported exports, e.g. "2024-03-01 12:30:45".
var dateTimePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}\s+\d{2}:\d{2}:\d{2}`)

var alipayProfile = &PlatformProfile{
	ID:              "alipay",
	Name:            "Alipay",
	Encoding:        "gb18030",
	RequiredKeyword: "交易时间",
	AnyKeywords:     []string{"交易分类", "收/支"},
	DataPattern:     dateTimePattern,
	FallbackOffset:  5,
	MinFields:       6,
	Layouts: []Layout{
		// Standard export.
		{MinFields: 12, DateTime: 0, Category: 1, Counterparty: 2, Account: 3,
			Description: 4, Direction: 5, Amount: 6, PaymentMethod: 7, Status: 8},
		// Simplified export without the account column.
		{MinFields: 8, DateTime: 0, Category: 1, Counterparty: 2, Account: -1,
			Description: 3, Direction: 4, Amount: 5, PaymentMethod: 6, Status: 7},
	},
	RequireMarker: true,
	ExpenseMarker: "支出",
	IncomeMarker:  "收入",
	DateLayout:    "2006-01-02 15:04:05",
}

var wechatProfile = &PlatformProfile{
	ID:              "wechat",
	Name:            "WeChat Pay",
	Encoding:        "utf-8",
	RequiredKeyword: "交易时间",
	AnyKeywords:     []string{"交易类型", "收/支"},
	DataPattern:     dateTimePattern,
	FallbackOffset:  16,
	MinFields:       6,
	Layouts: []Layout{
		// Standard and simplified WeChat exports share column positions; the
		// wider one just carries trailing remark columns.
		{MinFields: 11, DateTime: 0, Category: 1, Counterparty: 2, Account: -1,
			Description: 3, Direction: 4, Amount: 5, PaymentMethod: 6, Status: 7},
		{MinFields: 8, DateTime: 0, Category: 1, Counterparty: 2, Account: -1,
			Description: 3, Direction: 4, Amount: 5, PaymentMethod: 6, Status: 7},
	},
	RequireMarker: false,
	ExpenseMarker: "支出",
	IncomeMarker:  "收入",
	DateLayout:    "2006-01-02 15:04:05",
}

var profiles = map[string]*PlatformProfile{
	alipayProfile.ID: alipayProfile,
	wechatProfile.ID: wechatProfile,
}

// ProfileByID returns the profile for a platform identifier.
func ProfileByID(id string) (*PlatformProfile, error) {
	p, ok := profiles[id]
	if !ok {
		return nil, fmt.Errorf("unknown import platform %q", id)
	}
	return p, nil
}

// Profiles lists all supported platform profiles.
func Profiles() []*PlatformProfile {
	return []*PlatformProfile{alipayProfile, wechatProfile}
}

// DecodeExport converts raw export bytes to a string using the profile's
// declared encoding.
func DecodeExport(p *PlatformProfile, raw []byte) (string, error) {
	if p.Encoding != "gb18030" {
		return string(raw), nil
	}
	decoded, _, err := transform.Bytes(simplifiedchinese.GB18030.NewDecoder(), raw)
	if err != nil {
		return "", fmt.Errorf("decode %s export as GB18030: %w", p.Name, err)
	}
	return string(decoded), nil
}
