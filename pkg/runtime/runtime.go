package runtime

var (
	Version   = "dev"
	GitCommit = ""
	Timestamp = ""
)
