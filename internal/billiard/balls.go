package billiard

// The table holds fifteen object balls plus the cue ball. Ball ids are the
// string forms the clients already use: "1".."15" and "cue".
const (
	CueBallID   = "cue"
	EightBallID = "8"
)

var objectBallIDs = map[string]struct{}{
	"1": {}, "2": {}, "3": {}, "4": {}, "5": {},
	"6": {}, "7": {}, "8": {}, "9": {}, "10": {},
	"11": {}, "12": {}, "13": {}, "14": {}, "15": {},
}

func IsObjectBall(id string) bool {
	_, ok := objectBallIDs[id]
	return ok
}

func IsValidBallID(id string) bool {
	return id == CueBallID || IsObjectBall(id)
}

// GroupOf returns the ball group of an object ball. The eight ball and the
// cue ball belong to neither group.
func GroupOf(id string) (BallGroup, bool) {
	switch id {
	case "1", "2", "3", "4", "5", "6", "7":
		return GroupFull, true
	case "9", "10", "11", "12", "13", "14", "15":
		return GroupStriped, true
	}
	return "", false
}
