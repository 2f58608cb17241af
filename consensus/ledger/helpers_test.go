package ledger

import "time"

func timeAt(sec int64) time.Time {
	return time.Unix(1667239800+sec, 0)
}
