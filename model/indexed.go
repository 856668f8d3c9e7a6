package model

// IndexedStatus records how far the projection has consumed the engine's
// event stream. A single row per deployment.
type IndexedStatus struct {
	ID            int64 `gorm:"column:id;primaryKey"`
	LastEventTime int64 `gorm:"column:last_event_time"`
	UpdateTime    int64 `gorm:"column:update_time;autoUpdateTime"`
}

func (IndexedStatus) TableName() string {
	return "mp_indexed_status"
}
