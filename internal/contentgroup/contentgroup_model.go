package contentgroup

import (
	"time"
)

// GroupType은 콘텐츠 그룹의 용도입니다.
type GroupType string

const (
	GroupDownload GroupType = "DOWNLOAD" // 다운로드 버튼으로 전달하는 자료
	GroupCoupon   GroupType = "COUPON"   // 쿠폰 코드 (QR/바코드)
	GroupGuide    GroupType = "GUIDE"    // 사용 안내문
)

// ItemKind는 콘텐츠 항목 종류입니다.
type ItemKind string

const (
	KindFile    ItemKind = "FILE"
	KindText    ItemKind = "TEXT"
	KindURL     ItemKind = "URL"
	KindQR      ItemKind = "QR"
	KindBarcode ItemKind = "BARCODE"
)

// 그룹당 최대 항목 수
const MaxItems = 20

// ContentGroup은 'content_groups' 테이블의 스키마입니다.
type ContentGroup struct {
	ID            uint64    `json:"id" db:"id"`
	WorkspaceID   uint64    `json:"workspace_id" db:"workspace_id"`
	GroupName     string    `json:"group_name" db:"group_name"`
	GroupType     GroupType `json:"group_type" db:"group_type"`
	ItemCount     int       `json:"item_count" db:"item_count"`
	Items         []Item    `json:"items,omitempty" db:"-"`
	CreatedID     uint64    `json:"created_id" db:"created_id"`
	CreatedByName string    `json:"created_by_name" db:"user_name"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// Item은 'content_group_items' 테이블의 스키마입니다. (position 순서 유지)
type Item struct {
	ID        uint64   `json:"id" db:"id"`
	GroupID   uint64   `json:"group_id" db:"group_id"`
	Position  int      `json:"position" db:"position"`
	ItemKind  ItemKind `json:"kind" db:"item_kind"`
	ItemValue string   `json:"value" db:"item_value"`
}

// GroupRequest는 콘텐츠 그룹 생성/수정 요청 본문입니다.
type GroupRequest struct {
	GroupName string        `json:"group_name" validate:"required,max=50"`
	GroupType GroupType     `json:"group_type" validate:"required,oneof=DOWNLOAD COUPON GUIDE"`
	Items     []ItemRequest `json:"items" validate:"max=20,dive"`
}

// ItemRequest는 항목 하나의 입력입니다.
type ItemRequest struct {
	Kind  ItemKind `json:"kind" validate:"required,oneof=FILE TEXT URL QR BARCODE"`
	Value string   `json:"value" validate:"required,max=1000"`
}
