package relation

import (
	matchmodel "PRelay/module/match/model"
	usermodel "PRelay/module/user/model"
	"context"
)

//go:generate mockgen -source=store.go -destination=mocks/store_mock.go -package=mocks

// Store 关系数据的外部存储（用户、好友列表、配对）。
// 中继只读，不写。
type Store interface {
	// FindUserByID 找不到时返回 errs.ErrUserNotFound
	FindUserByID(ctx context.Context, id string) (*usermodel.User, error)
	// FindUsersByIDs 按投影返回资料；不存在的 id 直接忽略
	FindUsersByIDs(ctx context.Context, ids []string, p usermodel.Projection) ([]usermodel.Profile, error)
	// FindAcceptedMatchesInvolving 该用户作为任意一方且 status=accepted 的配对
	FindAcceptedMatchesInvolving(ctx context.Context, userID string) ([]matchmodel.Match, error)
}
