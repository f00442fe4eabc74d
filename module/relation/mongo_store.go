package relation

import (
	matchmodel "PRelay/module/match/model"
	usermodel "PRelay/module/user/model"
	"PRelay/tools/errs"
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore users / matches 两个集合
type MongoStore struct {
	users   *mongo.Collection
	matches *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		users:   db.Collection(usermodel.UserCollection),
		matches: db.Collection(matchmodel.MatchCollection),
	}
}

type userDoc struct {
	OID            primitive.ObjectID `bson:"_id"`
	usermodel.User `bson:",inline"`
	Friends        struct {
		ID []interface{} `bson:"id"`
	} `bson:"friends"`
}

func (d *userDoc) toUser() *usermodel.User {
	u := d.User
	u.ID = d.OID.Hex()
	u.FriendIDs = make([]string, 0, len(d.Friends.ID))
	for _, v := range d.Friends.ID {
		u.FriendIDs = append(u.FriendIDs, idString(v))
	}
	return &u
}

type matchDoc struct {
	OID       primitive.ObjectID `bson:"_id"`
	User1ID   interface{}        `bson:"user1Id"`
	User2ID   interface{}        `bson:"user2Id"`
	Status    string             `bson:"status"`
	CreatedAt primitive.DateTime `bson:"createdAt,omitempty"`
	UpdatedAt primitive.DateTime `bson:"updatedAt,omitempty"`
}

// idString 历史数据里 id 可能是 ObjectID 也可能是字符串；其它类型原样转成文本交给校验过滤
func idString(v interface{}) string {
	switch t := v.(type) {
	case primitive.ObjectID:
		return t.Hex()
	case string:
		return t
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func (s *MongoStore) FindUserByID(ctx context.Context, id string) (*usermodel.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, errs.ErrInvalidIdentifier.WrapMsg("", "userId", id)
	}
	var doc userDoc
	err = s.users.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.ErrUserNotFound.WrapMsg("", "userId", id)
	}
	if err != nil {
		return nil, errs.WrapMsg(err, "mongo find user", "userId", id)
	}
	return doc.toUser(), nil
}

func (s *MongoStore) FindUsersByIDs(ctx context.Context, ids []string, p usermodel.Projection) ([]usermodel.Profile, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return []usermodel.Profile{}, nil
	}

	proj := bson.D{}
	for _, f := range p.Fields() {
		proj = append(proj, bson.E{Key: f, Value: 1})
	}
	cur, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": oids}}, options.Find().SetProjection(proj))
	if err != nil {
		return nil, errs.WrapMsg(err, "mongo find users", "count", len(oids))
	}
	defer cur.Close(ctx)

	out := make([]usermodel.Profile, 0, len(oids))
	for cur.Next(ctx) {
		var doc userDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, errs.WrapMsg(err, "mongo decode user")
		}
		out = append(out, doc.toUser().Project(p))
	}
	if err := cur.Err(); err != nil {
		return nil, errs.WrapMsg(err, "mongo users cursor")
	}
	return out, nil
}

func (s *MongoStore) FindAcceptedMatchesInvolving(ctx context.Context, userID string) ([]matchmodel.Match, error) {
	// 配对里的 userId 可能存成字符串或 ObjectID，两种都查
	keys := bson.A{userID}
	if oid, err := primitive.ObjectIDFromHex(userID); err == nil {
		keys = append(keys, oid)
	}
	filter := bson.M{
		"status": matchmodel.MatchAccepted,
		"$or": bson.A{
			bson.M{"user1Id": bson.M{"$in": keys}},
			bson.M{"user2Id": bson.M{"$in": keys}},
		},
	}
	cur, err := s.matches.Find(ctx, filter)
	if err != nil {
		return nil, errs.WrapMsg(err, "mongo find matches", "userId", userID)
	}
	defer cur.Close(ctx)

	var out []matchmodel.Match
	for cur.Next(ctx) {
		var doc matchDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, errs.WrapMsg(err, "mongo decode match")
		}
		out = append(out, matchmodel.Match{
			ID:        doc.OID.Hex(),
			User1ID:   idString(doc.User1ID),
			User2ID:   idString(doc.User2ID),
			Status:    doc.Status,
			CreatedAt: doc.CreatedAt.Time(),
			UpdatedAt: doc.UpdatedAt.Time(),
		})
	}
	if err := cur.Err(); err != nil {
		return nil, errs.WrapMsg(err, "mongo matches cursor")
	}
	return out, nil
}
