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

var _ todo.ListStore = (*Store)(nil)

func (s *Store) InsertList(ctx context.Context, list *todo.TodoList) error {
	_, err := s.lists().InsertOne(ctx, list)
	return err
}

func (s *Store) FindList(ctx context.Context, listID string) (todo.TodoList, error) {
	var list todo.TodoList
	err := s.lists().FindOne(ctx, bson.M{"list_id": listID}).Decode(&list)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return todo.TodoList{}, todo.ErrNotFound
	}
	if err != nil {
		return todo.TodoList{}, err
	}
	return list, nil
}

func (s *Store) UpdateList(ctx context.Context, listID string, upd todo.ListUpdate, updatedAt time.Time) (todo.TodoList, error) {
	set := bson.M{"updated_at": updatedAt}
	if upd.Title != nil {
		set["title"] = *upd.Title
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var list todo.TodoList
	err := s.lists().FindOneAndUpdate(ctx, bson.M{"list_id": listID}, bson.M{"$set": set}, opts).Decode(&list)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return todo.TodoList{}, todo.ErrNotFound
	}
	if err != nil {
		return todo.TodoList{}, err
	}
	return list, nil
}

func (s *Store) DeleteList(ctx context.Context, listID string) (bool, error) {
	res, err := s.lists().DeleteOne(ctx, bson.M{"list_id": listID})
	if err != nil {
		return false, err
	}
	if res.DeletedCount == 0 {
		return false, nil
	}
	// Items belong to exactly one list; drop them with their parent.
	if _, err := s.items().DeleteMany(ctx, bson.M{"list_id": listID}); err != nil {
		return true, err
	}
	return true, nil
}
