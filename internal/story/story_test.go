package story

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/storyplay/pkg/geo"
)

func ms(v int64) *int64 { return &v }

func TestSortRouteAnimations(t *testing.T) {
	ras := []RouteAnimation{
		{ID: "a", DisplayOrder: 2, StartTimeMs: ms(100)},
		{ID: "b", DisplayOrder: 1, StartTimeMs: ms(500)},
		{ID: "c", DisplayOrder: 1, StartTimeMs: ms(200)},
	}
	SortRouteAnimations(ras)

	want := []string{"c", "b", "a"}
	for i, id := range want {
		if ras[i].ID != id {
			t.Fatalf("order = %v, want %v", ids(ras), want)
		}
	}
}

func TestSortRouteAnimationsTieBreaks(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		in   []RouteAnimation
		want []string
	}{
		{
			name: "created at breaks start time tie",
			in: []RouteAnimation{
				{ID: "late", DisplayOrder: 1, StartTimeMs: ms(0), CreatedAt: base.Add(time.Minute)},
				{ID: "early", DisplayOrder: 1, StartTimeMs: ms(0), CreatedAt: base},
			},
			want: []string{"early", "late"},
		},
		{
			name: "missing start time sorts as zero",
			in: []RouteAnimation{
				{ID: "timed", DisplayOrder: 1, StartTimeMs: ms(10)},
				{ID: "untimed", DisplayOrder: 1},
			},
			want: []string{"untimed", "timed"},
		},
		{
			name: "full ties keep input order",
			in: []RouteAnimation{
				{ID: "x", DisplayOrder: 3, CreatedAt: base},
				{ID: "y", DisplayOrder: 3, CreatedAt: base},
				{ID: "z", DisplayOrder: 3, CreatedAt: base},
			},
			want: []string{"x", "y", "z"},
		},
		{
			name: "display order wins over created at",
			in: []RouteAnimation{
				{ID: "second", DisplayOrder: 2, CreatedAt: base},
				{ID: "first", DisplayOrder: 1, CreatedAt: base.Add(time.Hour)},
			},
			want: []string{"first", "second"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SortRouteAnimations(tt.in)
			got := ids(tt.in)
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Fatalf("order = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestSegmentAutoAdvanceDefault(t *testing.T) {
	var segs []Segment
	src := `
- id: a
  duration_ms: 5000
- id: b
  auto_advance: false
`
	if err := yaml.Unmarshal([]byte(src), &segs); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !segs[0].AutoAdvance {
		t.Error("expected auto_advance to default to true")
	}
	if segs[1].AutoAdvance {
		t.Error("expected explicit auto_advance=false to be kept")
	}
	if segs[0].Duration() != 5*time.Second {
		t.Errorf("Duration() = %v, want 5s", segs[0].Duration())
	}
}

func TestSegmentOverlay(t *testing.T) {
	content, button := Segment{}.Overlay()
	if content != "" || button != DefaultTriggerButtonText {
		t.Errorf("Overlay() = %q, %q", content, button)
	}

	seg := Segment{Transition: &Transition{OverlayContent: "Cross the river", TriggerButtonText: "Sail"}}
	content, button = seg.Overlay()
	if content != "Cross the river" || button != "Sail" {
		t.Errorf("Overlay() = %q, %q", content, button)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		story Story
		want  error
	}{
		{"ok", Story{Segments: []Segment{{ID: "a"}, {ID: "b"}}, RouteAnimations: []RouteAnimation{{ID: "r", SegmentID: "b"}}}, nil},
		{"empty id", Story{Segments: []Segment{{ID: ""}}}, ErrEmptySegmentID},
		{"duplicate", Story{Segments: []Segment{{ID: "a"}, {ID: "a"}}}, ErrDuplicateSegment},
		{"negative duration", Story{Segments: []Segment{{ID: "a", DurationMs: -1}}}, ErrNegativeDuration},
		{"unknown segment", Story{Segments: []Segment{{ID: "a"}}, RouteAnimations: []RouteAnimation{{ID: "r", SegmentID: "zz"}}}, ErrUnknownSegment},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.story.Validate()
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestReadWriteFile(t *testing.T) {
	zoom := 11.5
	s := &Story{
		Version: "1",
		MapID:   "m1",
		Title:   "Danube",
		Segments: []Segment{
			{ID: "b", Order: 2, DurationMs: 3000, RequireUserAction: true, Transition: &Transition{OverlayContent: "next"}},
			{ID: "a", Order: 1, DurationMs: 5000, AutoAdvance: true, Camera: &CameraState{Center: &geo.LngLat{Lng: 16.37, Lat: 48.21}, Zoom: &zoom},
				Locations: []Location{{ID: "l1", Name: "Vienna", Coordinate: geo.LngLat{Lng: 16.37, Lat: 48.21}}}},
		},
		RouteAnimations: []RouteAnimation{{ID: "r1", SegmentID: "a", DisplayOrder: 1, FollowCamera: true}},
	}

	path := filepath.Join(t.TempDir(), "story.yaml")
	if err := WriteFile(s, path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	if len(got.Segments) != 2 || got.Segments[0].ID != "a" {
		t.Fatalf("segments not sorted by order: %+v", got.Segments)
	}
	if got.Segments[0].MapID != "m1" || got.RouteAnimations[0].MapID != "m1" {
		t.Error("expected map id to be filled from story")
	}
	if got.Segments[0].Camera == nil || *got.Segments[0].Camera.Zoom != 11.5 {
		t.Errorf("camera not preserved: %+v", got.Segments[0].Camera)
	}
	if got.Segments[1].AutoAdvance {
		t.Error("expected auto_advance=false to survive round trip")
	}
	if len(got.Segments[0].Locations) != 1 {
		t.Errorf("locations not preserved: %+v", got.Segments[0].Locations)
	}
}

func TestReadFileMissing(t *testing.T) {
	if _, err := ReadFile("/nonexistent/story.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}

func ids(ras []RouteAnimation) []string {
	out := make([]string, len(ras))
	for i, ra := range ras {
		out[i] = ra.ID
	}
	return out
}
