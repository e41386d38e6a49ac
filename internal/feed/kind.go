package feed

// Kind selects the query template and required parameters of a feed.
type Kind string

const (
	KindHome    Kind = "home"
	KindLocal   Kind = "local"
	KindGlobal  Kind = "global"
	KindUser    Kind = "user"
	KindChannel Kind = "channel"
	KindRenotes Kind = "renotes"
	KindList    Kind = "list"
	KindAntenna Kind = "antenna"
	KindScore   Kind = "score"
)
