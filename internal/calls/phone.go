package calls

import (
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// defaultRegion is assumed for numbers stored without a country code.
const defaultRegion = "US"

// FormatPhoneNumber normalises a stored phone number to E.164 for the provider.
// Numbers without a leading "+" are read as North American first; failing
// that, as an international number missing its "+". Anything else is
// ErrInvalidPhone.
func FormatPhoneNumber(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidPhone)
	}

	candidates := []string{phone}
	if !strings.HasPrefix(phone, "+") {
		candidates = append(candidates, "+"+phone)
	}
	for _, raw := range candidates {
		num, err := phonenumbers.Parse(raw, defaultRegion)
		if err != nil {
			continue
		}
		if phonenumbers.IsPossibleNumberWithReason(num) != phonenumbers.IS_POSSIBLE {
			continue
		}
		return phonenumbers.Format(num, phonenumbers.E164), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPhone, phone)
}
