package sparkify

import (
	"musiclake/internal/plan"
	"musiclake/internal/timeparts"
)

// Table is one derived table: the session table it is materialised into,
// the output directory and the partition columns in nesting order.
type Table struct {
	Name        string
	Dir         string
	PartitionBy []string
	Plan        func() plan.Node
}

// Song catalog tables, in build order.
var (
	Songs = Table{
		Name:        "songs",
		Dir:         "songs",
		PartitionBy: []string{"year", "artist_id"},
		Plan:        SongsPlan,
	}
	Artists = Table{
		Name:        "artists",
		Dir:         "artists",
		PartitionBy: []string{"name"},
		Plan:        ArtistsPlan,
	}
)

// Event log tables, in build order. Songplays reads the time table.
var (
	Users = Table{
		Name:        "users",
		Dir:         "users",
		PartitionBy: []string{"user_id"},
		Plan:        UsersPlan,
	}
	Time = Table{
		Name:        "time",
		Dir:         "times",
		PartitionBy: []string{"year", "month"},
		Plan:        TimePlan,
	}
	Songplays = Table{
		Name:        "songplays",
		Dir:         "songplays",
		PartitionBy: []string{"year", "month"},
		Plan:        SongplaysPlan,
	}
)

func isNextSong(page plan.Expr) plan.Expr {
	return plan.Eq(page, plan.Lit(NextSong))
}

// SongsPlan keeps every song row; duplicate song ids survive.
func SongsPlan() plan.Node {
	return plan.Project(plan.Scan(SongsView),
		plan.Cols("song_id", "title", "artist_id", "year", "duration")...)
}

// ArtistsPlan yields one row per song, so an artist repeats once per song.
func ArtistsPlan() plan.Node {
	return plan.Project(plan.Scan(SongsView),
		plan.As(plan.Col("artist_id"), "artist_id"),
		plan.As(plan.Col("artist_name"), "name"),
		plan.As(plan.Col("artist_location"), "location"),
		plan.As(plan.Col("artist_latitude"), "latitude"),
		plan.As(plan.Col("artist_longitude"), "longitude"),
	)
}

// UsersPlan is distinct by whole row, not by user id: a level change yields
// a second row for the same user.
func UsersPlan() plan.Node {
	return plan.Distinct(plan.Project(
		plan.Filter(plan.Scan(LogsView), isNextSong(plan.Col("page"))),
		plan.As(plan.Col("userId"), "user_id"),
		plan.As(plan.Col("firstName"), "first_name"),
		plan.As(plan.Col("lastName"), "last_name"),
		plan.As(plan.Col("gender"), "gender"),
		plan.As(plan.Col("level"), "level"),
	))
}

// TimePlan has one row per song play event; equal timestamps are not merged.
func TimePlan() plan.Node {
	ts := plan.Col("ts")
	cols := []plan.Named{plan.As(plan.Call(timeparts.TimestampFunc, ts), "start_time")}
	for _, c := range timeparts.Components {
		cols = append(cols, plan.As(plan.Call(c.Name, ts), componentColumn(c.Name)))
	}
	return plan.Project(plan.Filter(plan.Scan(LogsView), isNextSong(plan.Col("page"))), cols...)
}

// componentColumn maps get_hour to hour and so on.
func componentColumn(fn string) string {
	const prefix = "get_"
	if len(fn) > len(prefix) && fn[:len(prefix)] == prefix {
		return fn[len(prefix):]
	}
	return fn
}

// SongplaysPlan joins time to the log on the truncated event timestamp, then
// to the song catalog on the exact artist name. Unmatched events drop out and
// an artist name shared by several songs fans out into several rows.
func SongplaysPlan() plan.Node {
	t := plan.Alias(plan.Scan(Time.Name), "t")
	l := plan.Alias(plan.Scan(LogsView), "l")
	s := plan.Alias(plan.Scan(SongsView), "s")
	startTime := plan.Call(timeparts.TimestampFunc, plan.QCol("l", "ts"))

	events := plan.Join(t, l, plan.And(
		plan.Eq(plan.QCol("t", "start_time"), startTime),
		isNextSong(plan.QCol("l", "page")),
	))
	plays := plan.Join(events, s, plan.Eq(plan.QCol("s", "artist_name"), plan.QCol("l", "artist")))

	return plan.Project(plays,
		plan.As(startTime, "start_time"),
		plan.As(plan.QCol("t", "year"), "year"),
		plan.As(plan.QCol("t", "month"), "month"),
		plan.As(plan.QCol("l", "userId"), "user_id"),
		plan.As(plan.QCol("l", "level"), "level"),
		plan.As(plan.QCol("s", "song_id"), "song_id"),
		plan.As(plan.QCol("s", "artist_id"), "artist_id"),
		plan.As(plan.QCol("l", "sessionId"), "session_id"),
		plan.As(plan.QCol("s", "artist_location"), "location"),
		plan.As(plan.QCol("l", "userAgent"), "user_agent"),
	)
}
