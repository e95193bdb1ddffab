package config

type WorkerKeyStruct struct {
	InteractionEventsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	InteractionEventsQueue: "interaction_events_queue",
}
