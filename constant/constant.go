package constant

type LiveStatus string

const (
	LiveStatusPublished LiveStatus = "PUBLISHED"
	LiveStatusEnded     LiveStatus = "ENDED"
)

func (s LiveStatus) String() string {
	return string(s)
}

type RecordingStatus string

const (
	RecordingStatusNotStarted RecordingStatus = "NOT_STARTED"
	RecordingStatusRecording  RecordingStatus = "RECORDING"
	RecordingStatusProcessing RecordingStatus = "PROCESSING"
	RecordingStatusCompleted  RecordingStatus = "COMPLETED"
	RecordingStatusFailed     RecordingStatus = "FAILED"
)

func (s RecordingStatus) String() string {
	return string(s)
}

type ChunkStatus string

const (
	ChunkStatusUploaded   ChunkStatus = "UPLOADED"
	ChunkStatusProcessing ChunkStatus = "PROCESSING"
	ChunkStatusCompleted  ChunkStatus = "COMPLETED"
	ChunkStatusFailed     ChunkStatus = "FAILED"
)

type FeedKind string

const (
	FeedKindCamera      FeedKind = "CAMERA"
	FeedKindScreen      FeedKind = "SCREEN"
	FeedKindAudio       FeedKind = "AUDIO"
	FeedKindScreenAudio FeedKind = "SCREEN_AUDIO"
)

func (k FeedKind) Valid() bool {
	switch k {
	case FeedKindCamera, FeedKindScreen, FeedKindAudio, FeedKindScreenAudio:
		return true
	}
	return false
}

type ParticipantType string

const (
	ParticipantTypePublisher  ParticipantType = "publisher"
	ParticipantTypeSubscriber ParticipantType = "subscriber"
)

func (p ParticipantType) Valid() bool {
	return p == ParticipantTypePublisher || p == ParticipantTypeSubscriber
}

type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusFailed     JobStatus = "FAILED"
	JobStatusCompleted  JobStatus = "COMPLETED"
)

type JobType string

const (
	JobTypeTranscoder     JobType = "transcoder"
	JobTypeRecordingMerge JobType = "recording_merge"
)

type Role string

const (
	RoleInstructor Role = "INSTRUCTOR"
	RoleStudent    Role = "STUDENT"
)

type Environment string

const (
	EnvironmentProduction Environment = "production"
	EnvironmentStaging    Environment = "staging"
	EnvironmentDevelop    Environment = "develop"
)

func (e Environment) String() string {
	return string(e)
}
