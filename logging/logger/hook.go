package logger

import (
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
)

const maskValue = "******"

// MaskHook replaces the values of sensitive fields before an entry is
// formatted. Connection strings keep everything but their credentials.
type MaskHook struct {
	fields []string
}

// NewMaskHook creates a hook masking any field whose name contains one
// of the given fragments.
func NewMaskHook(fields []string) *MaskHook {
	lowered := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			lowered = append(lowered, f)
		}
	}
	return &MaskHook{fields: lowered}
}

// Levels returns all log levels
func (h *MaskHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire masks sensitive entry fields
func (h *MaskHook) Fire(entry *logrus.Entry) error {
	for key, value := range entry.Data {
		if !h.sensitive(key) {
			continue
		}
		s, ok := value.(string)
		if !ok {
			entry.Data[key] = maskValue
			continue
		}
		entry.Data[key] = maskString(s)
	}
	return nil
}

func (h *MaskHook) sensitive(key string) bool {
	key = strings.ToLower(key)
	for _, f := range h.fields {
		if strings.Contains(key, f) {
			return true
		}
	}
	return false
}

func maskString(s string) string {
	if u, err := url.Parse(s); err == nil && u.Scheme != "" && u.Host != "" {
		if u.User != nil {
			u.User = url.User(maskValue)
		}
		return u.Redacted()
	}
	return maskValue
}
