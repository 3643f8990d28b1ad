package queuenames

const (
	PipelineChannel  = "pipeline_channel"
	PipelineVideos   = "pipeline_videos"
	PipelineComments = "pipeline_comments"
)

// Priority orders the queues so that, when several jobs are runnable, an
// earlier stage's job runs before a later stage's. Later stages depend on
// what earlier stages promoted.
var Priority = []string{
	PipelineChannel,
	PipelineVideos,
	PipelineComments,
}
