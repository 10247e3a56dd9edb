package entity

import (
	"sort"
	"time"
)

// Annotated is satisfied by every resource that owns annotation
// records (key/value data and files).
type Annotated interface {
	ObjectKind() Kind
	ObjectPK() int64
}

// Datum is one key/value annotation attached to an owning resource.
// All owners share a single table; ObjectType holds the owner kind and
// ObjectID its surrogate key.
type Datum struct {
	PK         int64     `gorm:"primaryKey;autoIncrement" json:"pk"`
	ObjectType string    `gorm:"size:40;not null;index:idx_data_object" json:"object_type"`
	ObjectID   int64     `gorm:"not null;index:idx_data_object" json:"object_id"`
	Key        string    `gorm:"size:255;not null" json:"key"`
	Value      string    `json:"value"`
	Ord        int       `gorm:"not null;default:1" json:"ord"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Datum) TableName() string { return "data" }

// File is one named payload attached to an owning resource, stored in
// the same owner-tagged fashion as Datum.
type File struct {
	PK         int64     `gorm:"primaryKey;autoIncrement" json:"pk"`
	ObjectType string    `gorm:"size:40;not null;index:idx_files_object" json:"object_type"`
	ObjectID   int64     `gorm:"not null;index:idx_files_object" json:"object_id"`
	Name       string    `gorm:"size:255;not null" json:"name"`
	MimeType   string    `gorm:"size:100" json:"mime_type"`
	Content    []byte    `json:"content,omitempty"`
	Ord        int       `gorm:"not null;default:1" json:"ord"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (File) TableName() string { return "files" }

// DataDict flattens annotation records into a key/value map. Records
// apply in (ord, pk) order, so on duplicate keys the last record wins;
// keeping keys unique is the caller's responsibility.
func DataDict(data []Datum) map[string]string {
	sorted := make([]Datum, len(data))
	copy(sorted, data)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Ord != sorted[j].Ord {
			return sorted[i].Ord < sorted[j].Ord
		}
		return sorted[i].PK < sorted[j].PK
	})
	dict := make(map[string]string, len(sorted))
	for _, d := range sorted {
		dict[d.Key] = d.Value
	}
	return dict
}

// FilesDict flattens file records into a name-keyed map with the same
// last-record-wins behavior as DataDict.
func FilesDict(files []File) map[string]File {
	sorted := make([]File, len(files))
	copy(sorted, files)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Ord != sorted[j].Ord {
			return sorted[i].Ord < sorted[j].Ord
		}
		return sorted[i].PK < sorted[j].PK
	})
	dict := make(map[string]File, len(sorted))
	for _, f := range sorted {
		dict[f.Name] = f
	}
	return dict
}

// NewData builds annotation records from a mapping, assigning ordinals
// over the sorted keys so the result round-trips through DataDict.
func NewData(kind Kind, objectID int64, m map[string]string) []Datum {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	data := make([]Datum, 0, len(keys))
	for i, k := range keys {
		data = append(data, Datum{
			ObjectType: string(kind),
			ObjectID:   objectID,
			Key:        k,
			Value:      m[k],
			Ord:        i + 1,
		})
	}
	return data
}
