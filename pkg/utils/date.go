package utils

import (
	"fmt"
	"time"
)

const providerDateTimeLayout = "20060102150405"

// ProviderLocation is the provider's wall clock, GMT+7 with no daylight saving.
var ProviderLocation = time.FixedZone("ICT", 7*60*60)

// FormatProviderDateTime renders t as yyyyMMddHHmmss in GMT+7.
func FormatProviderDateTime(t time.Time) string {
	return t.In(ProviderLocation).Format(providerDateTimeLayout)
}

func ParseProviderDateTime(datetime string) (time.Time, error) {
	t, err := time.ParseInLocation(providerDateTimeLayout, datetime, ProviderLocation)
	if err != nil {
		return time.Time{}, fmt.Errorf("error parsing provider time: %v", err)
	}

	return t, nil
}
