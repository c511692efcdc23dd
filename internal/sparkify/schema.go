package sparkify

import "musiclake/internal/plan"

// View names the raw inputs are registered under.
const (
	SongsView = "songs_json"
	LogsView  = "logs_json"
)

// NextSong is the page value of a song play event.
const NextSong = "NextSong"

// SongSchema declares the song metadata fields. Declared columns exist even
// when the input is empty, and values of the wrong type read as null.
var SongSchema = plan.Schema{
	{Name: "artist_id", Type: plan.TypeString},
	{Name: "artist_latitude", Type: plan.TypeFloat64},
	{Name: "artist_location", Type: plan.TypeString},
	{Name: "artist_longitude", Type: plan.TypeFloat64},
	{Name: "artist_name", Type: plan.TypeString},
	{Name: "duration", Type: plan.TypeFloat64},
	{Name: "num_songs", Type: plan.TypeInt64},
	{Name: "song_id", Type: plan.TypeString},
	{Name: "title", Type: plan.TypeString},
	{Name: "year", Type: plan.TypeInt64},
}

// LogSchema declares the activity log fields. ts is read as a double so a
// fractional timestamp survives until get_timestamp truncates it.
var LogSchema = plan.Schema{
	{Name: "artist", Type: plan.TypeString},
	{Name: "auth", Type: plan.TypeString},
	{Name: "firstName", Type: plan.TypeString},
	{Name: "gender", Type: plan.TypeString},
	{Name: "itemInSession", Type: plan.TypeInt64},
	{Name: "lastName", Type: plan.TypeString},
	{Name: "length", Type: plan.TypeFloat64},
	{Name: "level", Type: plan.TypeString},
	{Name: "location", Type: plan.TypeString},
	{Name: "method", Type: plan.TypeString},
	{Name: "page", Type: plan.TypeString},
	{Name: "registration", Type: plan.TypeFloat64},
	{Name: "sessionId", Type: plan.TypeInt64},
	{Name: "song", Type: plan.TypeString},
	{Name: "status", Type: plan.TypeInt64},
	{Name: "ts", Type: plan.TypeFloat64},
	{Name: "userAgent", Type: plan.TypeString},
	{Name: "userId", Type: plan.TypeString},
}
