package lockfile

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Record is the persisted lock document.
type Record struct {
	PID   int    `json:"pid"`
	UID   int    `json:"uid"`
	GID   int    `json:"gid"`
	Group string `json:"group"`
}

// Current describes the calling process.
func Current(group string) Record {
	uid, gid := currentIDs()
	return Record{PID: os.Getpid(), UID: uid, GID: gid, Group: group}
}

func decodeRecord(data []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("decode lock record: %w", err)
	}
	if rec.PID <= 0 {
		return Record{}, fmt.Errorf("decode lock record: invalid pid %d", rec.PID)
	}
	return rec, nil
}

func encodeRecord(rec Record) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// ResolvePath expands the {tmp} and {name} placeholders of a path template.
// {tmp} is the OS temporary directory without a trailing separator.
func ResolvePath(template, name string) string {
	tmp := strings.TrimRight(os.TempDir(), string(os.PathSeparator))
	if tmp == "" {
		tmp = string(os.PathSeparator)
	}
	out := strings.ReplaceAll(template, "{tmp}", tmp)
	return strings.ReplaceAll(out, "{name}", name)
}
