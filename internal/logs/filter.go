package logs

import (
	"strconv"
	"strings"
)

// VideoMatcher reports whether a console or JSON log line belongs to videoID.
func VideoMatcher(videoID int64) func(string) bool {
	id := strconv.FormatInt(videoID, 10)
	console := "[video #" + id + "]"
	jsonKey := `"video_id":` + id
	return func(line string) bool {
		if strings.Contains(line, console) {
			return true
		}
		idx := strings.Index(line, jsonKey)
		if idx < 0 {
			return false
		}
		rest := line[idx+len(jsonKey):]
		return rest == "" || rest[0] == ',' || rest[0] == '}'
	}
}
