package tracing

// Span names.
const (
	SpanSubmit     = "handoff.submit"
	SpanAttach     = "handoff.attach"
	SpanLoadDir    = "producer.load_dir"
	SpanLoadFile   = "producer.load_file"
	SpanSnapshot   = "store.save_snapshot"
	EventReplayed  = "handoff.replayed"
	EventForwarded = "handoff.forwarded"
	EventBuffered  = "handoff.buffered"
)

// Span attribute keys.
const (
	AttrModule       = "implindex.module"
	AttrRecordCount  = "implindex.record_count"
	AttrPhase        = "implindex.phase"
	AttrPolicy       = "implindex.policy"
	AttrReplayCount  = "implindex.replay_count"
	AttrModuleCount  = "implindex.module_count"
	AttrFragmentPath = "implindex.fragment.path"
	AttrFragmentDir  = "implindex.fragment.dir"
	AttrBuildID      = "implindex.build_id"
)
