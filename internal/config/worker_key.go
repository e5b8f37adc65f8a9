package config

type WorkerKeyStruct struct {
	// AttemptDeadlines is a sorted set of attempt IDs scored by deadline (unix seconds).
	AttemptDeadlines string
}

var WorkerKey = &WorkerKeyStruct{
	AttemptDeadlines: "attempt_deadlines",
}
