package model

// CurateItemStatus 策展列表条目状态，顺序与合约枚举一致
type CurateItemStatus uint8

const (
	CurateItemAbsent CurateItemStatus = iota
	CurateItemRegistered
	CurateItemRegistrationRequested
	CurateItemClearingRequested
)

func (s CurateItemStatus) String() string {
	switch s {
	case CurateItemAbsent:
		return "Absent"
	case CurateItemRegistered:
		return "Registered"
	case CurateItemRegistrationRequested:
		return "RegistrationRequested"
	case CurateItemClearingRequested:
		return "ClearingRequested"
	default:
		return "Unknown"
	}
}

// ProjectExtra 仅来自策展列表的附加信息
type ProjectExtra struct {
	TCRItemStatus string `json:"tcrItemStatus"`
	TCRItemURL    string `json:"tcrItemUrl"`
}

// ProjectRecord 对账后的项目记录，按 ID 去重
type ProjectRecord struct {
	ID          string `json:"id"`
	Address     string `json:"address"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl"`
	// Index 为0表示未在本地注册表登记
	Index    int64         `json:"index"`
	IsHidden bool          `json:"isHidden"`
	IsLocked bool          `json:"isLocked"`
	Extra    *ProjectExtra `json:"extra,omitempty"`
}
