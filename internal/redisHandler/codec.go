package redishandler

import (
	"fmt"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/saxenaaman628/trip-poll/internal/apperr"
	"github.com/saxenaaman628/trip-poll/internal/models"
)

var timeType = reflect.TypeOf(time.Time{})

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func encodeSession(s models.Session) map[string]interface{} {
	return map[string]interface{}{
		"id":               s.ID,
		"host_id":          s.HostID,
		"created_at":       formatTime(s.CreatedAt),
		"category":         string(s.Category),
		"poll_state":       string(s.PollState),
		"generation_lease": s.GenerationLease,
		"lease_expires_at": formatTime(s.LeaseExpiresAt),
		"closed_at":        formatTime(s.ClosedAt),
		"winner_id":        s.WinnerID,
	}
}

// stringToTimeHook parses RFC 3339 timestamps; an empty string is the zero
// time.
func stringToTimeHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String || to != timeType {
		return data, nil
	}
	s, _ := data.(string)
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

func decodeSession(data map[string]string) (models.Session, error) {
	var s models.Session
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       stringToTimeHook,
		WeaklyTypedInput: true,
		Result:           &s,
		TagName:          "mapstructure",
	})
	if err != nil {
		return models.Session{}, apperr.Internal("failed to build session decoder", err)
	}
	if err := dec.Decode(data); err != nil {
		return models.Session{}, apperr.Internal("corrupt session record", fmt.Errorf("%s: %w", data["id"], err))
	}
	return s, nil
}
