package situation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// Unknown is the sentinel value for unresolved location fields.
const Unknown = "unknown"

type Timezone struct {
	Name       string `json:"name"`
	ShortName  string `json:"short_name"`
	FullName   string `json:"full_name"`
	OffsetSecs int    `json:"offset_secs"`
	IsDst      bool   `json:"is_dst"`
}

// Location is the last-known-good place and timezone for a session.
type Location struct {
	City     string   `json:"city"`
	State    string   `json:"state"`
	Country  string   `json:"country"`
	Timezone Timezone `json:"timezone"`
}

func NewLocation() Location {
	return Location{
		City:    Unknown,
		State:   Unknown,
		Country: Unknown,
		Timezone: Timezone{
			Name:      Unknown,
			ShortName: Unknown,
			FullName:  Unknown,
		},
	}
}

// Merge folds an update into the receiver field by field. A field that
// resolves to Unknown never overwrites a previously known value.
func (l Location) Merge(update Location) Location {
	out := l
	out.City = mergeField(l.City, update.City)
	out.State = mergeField(l.State, update.State)
	out.Country = mergeField(l.Country, update.Country)
	if known(update.Timezone.Name) {
		out.Timezone = Timezone{
			Name:       update.Timezone.Name,
			ShortName:  mergeField(l.Timezone.ShortName, update.Timezone.ShortName),
			FullName:   mergeField(l.Timezone.FullName, update.Timezone.FullName),
			OffsetSecs: update.Timezone.OffsetSecs,
			IsDst:      update.Timezone.IsDst,
		}
	}
	return out
}

// KnownAny reports whether at least one place field has resolved.
func (l Location) KnownAny() bool {
	return known(l.City) || known(l.State) || known(l.Country) || known(l.Timezone.Name)
}

// Prose renders the location as free text for the system prompt. Empty when
// nothing is known.
func (l Location) Prose(now time.Time) string {
	if !l.KnownAny() {
		return ""
	}
	place := ""
	switch {
	case known(l.City) && known(l.State):
		place = l.City + ", " + l.State
	case known(l.City):
		place = l.City
	case known(l.State):
		place = l.State
	case known(l.Country):
		place = l.Country
	}
	out := ""
	if place != "" {
		out = "The user is currently in " + place
		if known(l.Country) && place != l.Country {
			out += ", " + l.Country
		}
		out += "."
	}
	if known(l.Timezone.Name) {
		local := now.UTC().Add(time.Duration(l.Timezone.OffsetSecs) * time.Second)
		if out != "" {
			out += " "
		}
		out += fmt.Sprintf("Their timezone is %s (%s) and their local time is %s.",
			l.Timezone.Name, l.Timezone.ShortName, local.Format("Mon 3:04 PM"))
	}
	return out
}

func mergeField(prev, next string) string {
	if known(next) {
		return next
	}
	return prev
}

func known(v string) bool {
	return v != "" && v != Unknown
}

// Resolver turns raw coordinates into place and timezone facts. Both lookups
// are independently fallible; a failed half contributes Unknown fields and
// the merge keeps whatever was known before.
type Resolver interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) (Location, error)
	ResolveTimezone(ctx context.Context, lat, lng float64) (Timezone, error)
}

// HTTPResolver resolves coordinates against REST geocoding and timezone APIs.
type HTTPResolver struct {
	geocodeURL  string
	timezoneURL string
	client      *http.Client
}

func NewHTTPResolver(geocodeURL, timezoneURL string, timeout time.Duration) *HTTPResolver {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPResolver{
		geocodeURL:  geocodeURL,
		timezoneURL: timezoneURL,
		client:      &http.Client{Timeout: timeout},
	}
}

func (r *HTTPResolver) ReverseGeocode(ctx context.Context, lat, lng float64) (Location, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(lng, 'f', 6, 64))
	q.Set("format", "jsonv2")

	var payload struct {
		Address struct {
			City    string `json:"city"`
			Town    string `json:"town"`
			Village string `json:"village"`
			State   string `json:"state"`
			Country string `json:"country"`
		} `json:"address"`
	}
	if err := r.getJSON(ctx, r.geocodeURL+"?"+q.Encode(), &payload); err != nil {
		return NewLocation(), err
	}

	loc := NewLocation()
	city := payload.Address.City
	if city == "" {
		city = payload.Address.Town
	}
	if city == "" {
		city = payload.Address.Village
	}
	if city != "" {
		loc.City = city
	}
	if payload.Address.State != "" {
		loc.State = payload.Address.State
	}
	if payload.Address.Country != "" {
		loc.Country = payload.Address.Country
	}
	return loc, nil
}

func (r *HTTPResolver) ResolveTimezone(ctx context.Context, lat, lng float64) (Timezone, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', 6, 64))
	q.Set("longitude", strconv.FormatFloat(lng, 'f', 6, 64))

	var payload struct {
		TimeZone       string `json:"timeZone"`
		StandardOffset struct {
			Seconds int `json:"seconds"`
		} `json:"standardUtcOffset"`
		CurrentOffset struct {
			Seconds int    `json:"seconds"`
			Abbrev  string `json:"abbreviation"`
		} `json:"currentUtcOffset"`
		HasDst   bool `json:"hasDayLightSaving"`
		IsDstNow bool `json:"isDayLightSavingActive"`
	}
	if err := r.getJSON(ctx, r.timezoneURL+"?"+q.Encode(), &payload); err != nil {
		return Timezone{Name: Unknown, ShortName: Unknown, FullName: Unknown}, err
	}
	if payload.TimeZone == "" {
		return Timezone{Name: Unknown, ShortName: Unknown, FullName: Unknown}, fmt.Errorf("timezone lookup returned no zone")
	}

	tz := Timezone{
		Name:       payload.TimeZone,
		ShortName:  payload.CurrentOffset.Abbrev,
		FullName:   payload.TimeZone,
		OffsetSecs: payload.CurrentOffset.Seconds,
		IsDst:      payload.IsDstNow,
	}
	if tz.ShortName == "" {
		tz.ShortName = tz.Name
	}
	return tz, nil
}

func (r *HTTPResolver) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("lookup status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// LocationStore keeps the merged location per session.
type LocationStore struct {
	mu        sync.RWMutex
	locations map[string]Location
}

func NewLocationStore() *LocationStore {
	return &LocationStore{locations: make(map[string]Location)}
}

func (s *LocationStore) Get(sessionID string) Location {
	s.mu.RLock()
	defer s.mu.RUnlock()
	loc, ok := s.locations[sessionID]
	if !ok {
		return NewLocation()
	}
	return loc
}

func (s *LocationStore) Apply(sessionID string, update Location) Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.locations[sessionID]
	if !ok {
		prev = NewLocation()
	}
	merged := prev.Merge(update)
	s.locations[sessionID] = merged
	return merged
}

func (s *LocationStore) Drop(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locations, sessionID)
}
