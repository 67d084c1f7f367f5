package timezone

import (
	"strings"
	"time"
)

var (
	ICT *time.Location // UTC+7 - Indochina (Bangkok, Ho Chi Minh City, Jakarta)
	CST *time.Location // UTC+8 - China, Hong Kong, Taipei, Singapore, Kuala Lumpur
	JST *time.Location // UTC+9 - Japan, Korea
)

func init() {
	ICT = time.FixedZone("ICT", 7*60*60)
	CST = time.FixedZone("CST", 8*60*60)
	JST = time.FixedZone("JST", 9*60*60)
}

var airportTimezones = map[string]string{
	// ICT (UTC+7)
	"BKK": "ICT", // Bangkok - Suvarnabhumi
	"DMK": "ICT", // Bangkok - Don Mueang
	"HKT": "ICT", // Phuket
	"SGN": "ICT", // Ho Chi Minh City - Tan Son Nhat
	"HAN": "ICT", // Hanoi - Noi Bai
	"CGK": "ICT", // Jakarta - Soekarno-Hatta

	// CST (UTC+8)
	"BJS": "CST", // Beijing - all airports
	"PEK": "CST", // Beijing - Capital
	"PKX": "CST", // Beijing - Daxing
	"SHA": "CST", // Shanghai - all airports / Hongqiao
	"PVG": "CST", // Shanghai - Pudong
	"CAN": "CST", // Guangzhou - Baiyun
	"SZX": "CST", // Shenzhen - Bao'an
	"CTU": "CST", // Chengdu - Shuangliu
	"TFU": "CST", // Chengdu - Tianfu
	"HGH": "CST", // Hangzhou - Xiaoshan
	"XMN": "CST", // Xiamen - Gaoqi
	"HKG": "CST", // Hong Kong
	"MFM": "CST", // Macau
	"TPE": "CST", // Taipei - Taoyuan
	"SIN": "CST", // Singapore - Changi
	"KUL": "CST", // Kuala Lumpur
	"MNL": "CST", // Manila - Ninoy Aquino
	"DPS": "CST", // Bali - Ngurah Rai

	// JST (UTC+9)
	"NRT": "JST", // Tokyo - Narita
	"HND": "JST", // Tokyo - Haneda
	"KIX": "JST", // Osaka - Kansai
	"ICN": "JST", // Seoul - Incheon
	"GMP": "JST", // Seoul - Gimpo
}

// GetTimezoneByAirport returns the zone abbreviation, CST when unknown.
func GetTimezoneByAirport(code string) string {
	code = strings.ToUpper(code)
	if tz, ok := airportTimezones[code]; ok {
		return tz
	}
	return "CST"
}

func GetLocationByAirport(code string) *time.Location {
	switch GetTimezoneByAirport(code) {
	case "ICT":
		return ICT
	case "JST":
		return JST
	default:
		return CST
	}
}

func GetLocationByName(name string) *time.Location {
	switch strings.ToUpper(name) {
	case "ICT", "UTC+7":
		return ICT
	case "JST", "KST", "UTC+9":
		return JST
	case "CST", "UTC+8":
		return CST
	default:
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
		return CST
	}
}

const (
	// WireLayout is the compact minute-precision form used in mock envelopes.
	WireLayout = "200601021504"
	// DisplayLayout is the form segments carry in canonical offers.
	DisplayLayout = "2006-01-02 15:04:05"
)

// ParseTimeWithOffset parses the timestamp shapes backends send. Strings
// without an offset are read in tzName's location, CST when tzName is empty.
func ParseTimeWithOffset(timeStr string, tzName string) (time.Time, error) {
	formats := []string{
		time.RFC3339,
		"2006-01-02T15:04:05-0700",
		"2006-01-02T15:04:05Z",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, timeStr); err == nil {
			return t, nil
		}
	}

	loc := CST
	if tzName != "" {
		loc = GetLocationByName(tzName)
	}
	simpleFormats := []string{
		"2006-01-02T15:04:05",
		DisplayLayout,
		"2006-01-02T15:04",
		"2006-01-02 15:04",
		"20060102150405",
		WireLayout,
	}
	for _, format := range simpleFormats {
		if t, err := time.ParseInLocation(format, timeStr, loc); err == nil {
			return t, nil
		}
	}

	return time.Time{}, &time.ParseError{
		Value:   timeStr,
		Message: "unable to parse time string",
	}
}

// NormalizeDisplay rewrites a backend timestamp into DisplayLayout, leaving
// unparseable input untouched.
func NormalizeDisplay(timeStr string) string {
	if timeStr == "" {
		return ""
	}
	t, err := ParseTimeWithOffset(timeStr, "")
	if err != nil {
		return timeStr
	}
	return t.Format(DisplayLayout)
}

// LocalDateTime parses a yyyy-MM-dd date and HH:mm time in the airport's zone.
func LocalDateTime(date, clock, airportCode string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04", date+" "+clock, GetLocationByAirport(airportCode))
}

func ConvertToTimezone(t time.Time, airportCode string) time.Time {
	return t.In(GetLocationByAirport(airportCode))
}
