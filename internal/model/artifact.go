// Package model defines the artifact catalog's core types: the three
// artifact kinds, the edge relation between them, README and rating
// records, audit entries and the cache key shape. These mirror the
// relational data model of the registry and are shared by every
// subsystem (repository, accessor, rating, api).
package model

import "time"

// Kind identifies which of the three physical artifact tables a row
// belongs to.
type Kind string

const (
	KindModel   Kind = "model"
	KindDataset Kind = "dataset"
	KindCode    Kind = "code"
)

func (k Kind) Valid() bool {
	switch k {
	case KindModel, KindDataset, KindCode:
		return true
	}
	return false
}

// Relation identifies the kind of edge recorded between two artifacts.
type Relation string

const (
	RelationModelDataset Relation = "model_dataset"
	RelationModelCode    Relation = "model_codebase"
	RelationModelParent  Relation = "model_parent"
)

// Action identifies the kind of event recorded in the audit log.
type Action string

const (
	ActionCreate   Action = "CREATE"
	ActionUpdate   Action = "UPDATE"
	ActionDownload Action = "DOWNLOAD"
	ActionRate     Action = "RATE"
	ActionAudit    Action = "AUDIT"
)

// Artifact is the common shape shared by models, datasets and codebases.
// Relation payload (linked dataset/codebase/parent-model names) only
// applies to artifacts of KindModel and is carried out-of-band in the
// edge table, not on this struct, since it is resolved by name and may
// be incomplete at ingest time.
type Artifact struct {
	ID          string  `db:"id" json:"id"`
	Kind        Kind    `db:"kind" json:"type"`
	Name        string  `db:"name" json:"name"`
	SourceURL   string  `db:"source_url" json:"url"`
	SizeMB      float64 `db:"size_mb" json:"size_mb"`
	DownloadURL string  `db:"-" json:"download_url,omitempty"`
}

// LinkedNames is the set of dependency names mined from a model's
// descriptive metadata (README front matter, hub webpage) at ingest
// time. Only populated for KindModel artifacts.
type LinkedNames struct {
	DatasetNames       []string
	CodebaseNames      []string
	ParentModelName    string
	ParentRelationTag  string // relation_label, e.g. "finetune", "quantized"
	ParentSourceTag    string // source_tag, e.g. "model_card", "model_webpage"
}

// Edge is a directed, named relation between a source artifact (possibly
// not yet ingested) and a destination model.
type Edge struct {
	ID             int64    `db:"id" json:"-"`
	SrcName        string   `db:"src_name" json:"src_name"`
	SrcID          *string  `db:"src_id" json:"src_id,omitempty"`
	DstName        string   `db:"dst_name" json:"dst_name"`
	DstID          string   `db:"dst_id" json:"dst_id"`
	Relation       Relation `db:"relation" json:"relation"`
	RelationLabel  string   `db:"relation_label" json:"relation_label,omitempty"`
	SourceTag      string   `db:"source_tag" json:"source_tag,omitempty"`
}

// Readme is the optional description body of an artifact, searchable
// by regex.
type Readme struct {
	ID   string `db:"id"`
	Kind Kind   `db:"kind"`
	Body string `db:"body"`
}

// MetricResult is the per-metric contribution to a Rating: a normalized
// raw score in [0,1], the latency it cost to produce, and the
// weight-adjusted contribution to the net score.
type MetricResult struct {
	Name     string        `json:"name"`
	RawScore float64       `json:"score"`
	Latency  time.Duration `json:"latency"`
	Weighted float64       `json:"-"`
	Failed   bool          `json:"-"`
}

// SizeScore is the structured, per-deployment-target size metric.
type SizeScore struct {
	RaspberryPi float64 `json:"raspberry_pi"`
	JetsonNano  float64 `json:"jetson_nano"`
	DesktopPC   float64 `json:"desktop_pc"`
	AWSServer   float64 `json:"aws_server"`
}

func (s SizeScore) Mean() float64 {
	return (s.RaspberryPi + s.JetsonNano + s.DesktopPC + s.AWSServer) / 4.0
}

// Rating is the aggregated outcome of the rating pipeline for one
// model, written only after ingest admission.
type Rating struct {
	ModelID   string                  `db:"model_id" json:"model_id"`
	NetScore  float64                 `db:"net_score" json:"net_score"`
	Metrics   map[string]MetricResult `db:"-" json:"metrics"`
	RawSize   SizeScore               `db:"-" json:"size_score"`
	RatedAt   time.Time               `db:"rated_at" json:"rated_at"`
}

// AuditEntry is one append-only record of who did what to which
// artifact and when.
type AuditEntry struct {
	ID            string    `db:"id" json:"id"`
	ArtifactID    string    `db:"artifact_id" json:"artifact_id"`
	Kind          Kind      `db:"kind" json:"kind"`
	Name          string    `db:"name" json:"name"`
	Actor         string    `db:"actor" json:"actor"`
	Timestamp     time.Time `db:"timestamp" json:"timestamp"`
	Action        Action    `db:"action" json:"action"`
	CorrelationID string    `db:"correlation_id" json:"correlation_id"`
}

// Query is a paged listing request against the catalog.
type Query struct {
	Name  string `validate:"omitempty"`
	Kinds []Kind `validate:"omitempty,dive,oneof=model dataset code"`
}

// CostReport is the response shape of the cost derived query.
type CostReport struct {
	ArtifactID  string  `json:"artifact_id"`
	Standalone  float64 `json:"standalone_cost"`
	Total       float64 `json:"total_cost"`
	Truncated   bool    `json:"truncated,omitempty"`
}

// LineageNode and LineageEdge make up the lineage graph response.
type LineageNode struct {
	ArtifactID string            `json:"artifact_id"`
	Name       string            `json:"name"`
	SourceTag  string            `json:"source_tag,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type LineageEdge struct {
	FromID        string `json:"from_id"`
	ToID          string `json:"to_id"`
	RelationLabel string `json:"relation_label,omitempty"`
}

type LineageGraph struct {
	ThisModel string        `json:"this_model"`
	Nodes     []LineageNode `json:"nodes"`
	Edges     []LineageEdge `json:"edges"`
}
