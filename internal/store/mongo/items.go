package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tasknest.org/internal/todo"
)

var _ todo.ItemStore = (*Store)(nil)

func (s *Store) InsertItem(ctx context.Context, item *todo.TodoItem) error {
	_, err := s.items().InsertOne(ctx, item)
	return err
}

func (s *Store) FindItem(ctx context.Context, itemID, listID string) (todo.TodoItem, error) {
	var item todo.TodoItem
	err := s.items().FindOne(ctx, bson.M{"item_id": itemID, "list_id": listID}).Decode(&item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return todo.TodoItem{}, todo.ErrNotFound
	}
	if err != nil {
		return todo.TodoItem{}, err
	}
	return item, nil
}

func (s *Store) QueryItems(ctx context.Context, listID string, q todo.ItemQuery) ([]todo.TodoItem, error) {
	filter := bson.M{"list_id": listID}
	if q.Status != nil {
		filter["status"] = string(*q.Status)
	}
	if q.DueBefore != nil {
		filter["due_date"] = bson.M{"$lte": *q.DueBefore}
	}

	direction := 1
	if q.Order == todo.OrderDesc {
		direction = -1
	}
	opts := options.Find().SetSort(bson.D{{Key: q.SortBy, Value: direction}})

	cur, err := s.items().Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	items := make([]todo.TodoItem, 0)
	if err := cur.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpdateItem(ctx context.Context, itemID, listID string, upd todo.ItemUpdate, updatedAt time.Time) (todo.TodoItem, error) {
	set := bson.M{"updated_at": updatedAt}
	if upd.Title != nil {
		set["title"] = *upd.Title
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.DueDate != nil {
		set["due_date"] = *upd.DueDate
	}
	if upd.Status != nil {
		set["status"] = string(*upd.Status)
	}
	if upd.Priority != nil {
		set["priority"] = string(*upd.Priority)
	}
	if upd.Tags != nil {
		set["tags"] = upd.Tags
	}
	if upd.MediaURL != nil {
		set["media_url"] = *upd.MediaURL
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var item todo.TodoItem
	err := s.items().FindOneAndUpdate(ctx, bson.M{"item_id": itemID, "list_id": listID}, bson.M{"$set": set}, opts).Decode(&item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return todo.TodoItem{}, todo.ErrNotFound
	}
	if err != nil {
		return todo.TodoItem{}, err
	}
	return item, nil
}

func (s *Store) DeleteItem(ctx context.Context, itemID, listID string) (bool, error) {
	res, err := s.items().DeleteOne(ctx, bson.M{"item_id": itemID, "list_id": listID})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}
