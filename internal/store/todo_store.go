package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nhle/todoapp/internal/clock"
	"github.com/nhle/todoapp/internal/model"
)

const todoColumns = `id, user_id, title, completed_at, priority, recurrence_pattern,
	due_date, reminder_minutes, last_notification_sent, created_at, updated_at`

var qualifiedTodoColumns = qualify("todos", todoColumns)

// qualify prefixes every column in a comma-separated list with table.
func qualify(table, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = table + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

// CreateTodo inserts a new todo for todo.UserID and sets its ID.
func (r *repo) CreateTodo(ctx context.Context, todo *model.Todo) error {
	if strings.TrimSpace(todo.Title) == "" {
		return fmt.Errorf("todo title must not be empty")
	}
	if todo.CreatedAt.IsZero() {
		todo.CreatedAt = time.Now()
	}
	todo.UpdatedAt = todo.CreatedAt
	if todo.Priority == "" {
		todo.Priority = model.PriorityMedium
	}
	if todo.Recurrence == "" {
		todo.Recurrence = model.RecurrenceNone
	}

	result, err := r.ext.ExecContext(ctx, `
		INSERT INTO todos (
			user_id, title, completed_at, priority, recurrence_pattern,
			due_date, reminder_minutes, last_notification_sent,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		todo.UserID, todo.Title, dbTimePtr(todo.CompletedAt), todo.Priority, todo.Recurrence,
		dbTimePtr(todo.DueDate), todo.Reminder, dbTimePtr(todo.LastNotificationSent),
		dbTime(todo.CreatedAt), dbTime(todo.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("creating todo: %w", err)
	}
	if todo.ID, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("reading todo id: %w", err)
	}
	return nil
}

// GetTodo retrieves a single todo owned by userID, including its tags and
// subtasks.
func (r *repo) GetTodo(ctx context.Context, userID, id int64) (*model.Todo, error) {
	var todo model.Todo
	err := sqlx.GetContext(ctx, r.ext, &todo,
		"SELECT "+todoColumns+" FROM todos WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return nil, notFound(err, "todo", id)
	}

	todos := []model.Todo{todo}
	if err := r.loadRelations(ctx, todos); err != nil {
		return nil, err
	}
	return &todos[0], nil
}

// ListTodos retrieves the user's todos matching the filter.
func (r *repo) ListTodos(ctx context.Context, userID int64, filter TodoFilter) ([]model.Todo, error) {
	query, args := r.buildTodoQuery("SELECT "+qualifiedTodoColumns, userID, filter, false)

	var todos []model.Todo
	if err := sqlx.SelectContext(ctx, r.ext, &todos, query, args...); err != nil {
		return nil, fmt.Errorf("querying todos: %w", err)
	}
	if err := r.loadRelations(ctx, todos); err != nil {
		return nil, err
	}
	return todos, nil
}

// CountTodos returns the count of the user's todos matching the filter.
func (r *repo) CountTodos(ctx context.Context, userID int64, filter TodoFilter) (int, error) {
	query, args := r.buildTodoQuery("SELECT COUNT(DISTINCT todos.id)", userID, filter, true)

	var count int
	if err := sqlx.GetContext(ctx, r.ext, &count, query, args...); err != nil {
		return 0, fmt.Errorf("counting todos: %w", err)
	}
	return count, nil
}

// UpdateTodo writes every mutable column of todo, scoped to todo.UserID.
func (r *repo) UpdateTodo(ctx context.Context, todo *model.Todo) error {
	if strings.TrimSpace(todo.Title) == "" {
		return fmt.Errorf("todo title must not be empty")
	}
	todo.UpdatedAt = time.Now().In(r.loc)

	result, err := r.ext.ExecContext(ctx, `
		UPDATE todos SET
			title = ?, completed_at = ?, priority = ?, recurrence_pattern = ?,
			due_date = ?, reminder_minutes = ?, last_notification_sent = ?,
			updated_at = ?
		WHERE id = ? AND user_id = ?`,
		todo.Title, dbTimePtr(todo.CompletedAt), todo.Priority, todo.Recurrence,
		dbTimePtr(todo.DueDate), todo.Reminder, dbTimePtr(todo.LastNotificationSent),
		dbTime(todo.UpdatedAt),
		todo.ID, todo.UserID,
	)
	if err != nil {
		return fmt.Errorf("updating todo %d: %w", todo.ID, err)
	}
	return checkAffected(result, "todo", todo.ID)
}

// MarkCompleted sets completed_at only if the todo is still incomplete.
// It reports false when no row changed, which is how a concurrent second
// completion of the same todo is detected.
func (r *repo) MarkCompleted(ctx context.Context, userID, id int64, at time.Time) (bool, error) {
	result, err := r.ext.ExecContext(ctx, `
		UPDATE todos SET completed_at = ?, updated_at = ?
		WHERE id = ? AND user_id = ? AND completed_at IS NULL`,
		dbTime(at), dbTime(at), id, userID,
	)
	if err != nil {
		return false, fmt.Errorf("completing todo %d: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking rows affected for todo %d: %w", id, err)
	}
	return rows == 1, nil
}

// DeleteTodo removes a single todo. Cascades to subtasks, todo_tags and
// notifications.
func (r *repo) DeleteTodo(ctx context.Context, userID, id int64) error {
	result, err := r.ext.ExecContext(ctx,
		"DELETE FROM todos WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("deleting todo %d: %w", id, err)
	}
	return checkAffected(result, "todo", id)
}

// todoTag is a tag row annotated with the todo it is attached to.
type todoTag struct {
	TodoID int64 `db:"todo_id"`
	model.Tag
}

// loadRelations fills Tags, Subtasks and Progress for todos in two batched
// queries and re-expresses timestamps in the configured zone.
func (r *repo) loadRelations(ctx context.Context, todos []model.Todo) error {
	if len(todos) == 0 {
		return nil
	}

	ids := make([]int64, len(todos))
	index := make(map[int64]int, len(todos))
	for i := range todos {
		ids[i] = todos[i].ID
		index[todos[i].ID] = i
		r.localTodo(&todos[i])
		todos[i].Tags = []model.Tag{}
		todos[i].Subtasks = []model.Subtask{}
	}

	query, args, err := sqlx.In(`
		SELECT tt.todo_id, t.id, t.user_id, t.name, t.color, t.created_at
		FROM tags t
		INNER JOIN todo_tags tt ON t.id = tt.tag_id
		WHERE tt.todo_id IN (?)
		ORDER BY t.name COLLATE NOCASE`, ids)
	if err != nil {
		return fmt.Errorf("building tag query: %w", err)
	}
	var tags []todoTag
	if err := sqlx.SelectContext(ctx, r.ext, &tags, r.ext.Rebind(query), args...); err != nil {
		return fmt.Errorf("loading tags: %w", err)
	}
	for _, tt := range tags {
		r.local(&tt.Tag.CreatedAt)
		i := index[tt.TodoID]
		todos[i].Tags = append(todos[i].Tags, tt.Tag)
	}

	query, args, err = sqlx.In(`
		SELECT id, todo_id, title, completed, position
		FROM subtasks
		WHERE todo_id IN (?)
		ORDER BY position, id`, ids)
	if err != nil {
		return fmt.Errorf("building subtask query: %w", err)
	}
	var subtasks []model.Subtask
	if err := sqlx.SelectContext(ctx, r.ext, &subtasks, r.ext.Rebind(query), args...); err != nil {
		return fmt.Errorf("loading subtasks: %w", err)
	}
	for _, s := range subtasks {
		i := index[s.TodoID]
		todos[i].Subtasks = append(todos[i].Subtasks, s)
	}

	for i := range todos {
		todos[i].Progress = model.Progress(todos[i].Subtasks)
	}
	return nil
}

func (r *repo) localTodo(t *model.Todo) {
	r.local(t.CompletedAt)
	r.local(t.DueDate)
	r.local(t.LastNotificationSent)
	r.local(&t.CreatedAt)
	r.local(&t.UpdatedAt)
}

// AddSubtask inserts a subtask under a todo owned by userID. A negative
// Position appends after the current last subtask.
func (r *repo) AddSubtask(ctx context.Context, userID int64, s *model.Subtask) error {
	if strings.TrimSpace(s.Title) == "" {
		return fmt.Errorf("subtask title must not be empty")
	}

	if s.Position < 0 {
		err := sqlx.GetContext(ctx, r.ext, &s.Position,
			"SELECT COALESCE(MAX(position) + 1, 0) FROM subtasks WHERE todo_id = ?", s.TodoID)
		if err != nil {
			return fmt.Errorf("getting next subtask position: %w", err)
		}
	}

	result, err := r.ext.ExecContext(ctx, `
		INSERT INTO subtasks (todo_id, title, completed, position)
		SELECT id, ?, ?, ? FROM todos WHERE id = ? AND user_id = ?`,
		s.Title, boolToInt(s.Completed), s.Position, s.TodoID, userID,
	)
	if err != nil {
		return fmt.Errorf("adding subtask: %w", err)
	}
	if err := checkAffected(result, "todo", s.TodoID); err != nil {
		return err
	}
	if s.ID, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("reading subtask id: %w", err)
	}
	return nil
}

// GetSubtask retrieves a subtask whose parent todo is owned by userID.
func (r *repo) GetSubtask(ctx context.Context, userID, id int64) (*model.Subtask, error) {
	var s model.Subtask
	err := sqlx.GetContext(ctx, r.ext, &s, `
		SELECT s.id, s.todo_id, s.title, s.completed, s.position
		FROM subtasks s
		INNER JOIN todos t ON t.id = s.todo_id
		WHERE s.id = ? AND t.user_id = ?`, id, userID)
	if err != nil {
		return nil, notFound(err, "subtask", id)
	}
	return &s, nil
}

// UpdateSubtask updates title, completion and position of a subtask.
func (r *repo) UpdateSubtask(ctx context.Context, userID int64, s *model.Subtask) error {
	if strings.TrimSpace(s.Title) == "" {
		return fmt.Errorf("subtask title must not be empty")
	}
	result, err := r.ext.ExecContext(ctx, `
		UPDATE subtasks SET title = ?, completed = ?, position = ?
		WHERE id = ? AND todo_id IN (SELECT id FROM todos WHERE user_id = ?)`,
		s.Title, boolToInt(s.Completed), s.Position, s.ID, userID,
	)
	if err != nil {
		return fmt.Errorf("updating subtask %d: %w", s.ID, err)
	}
	return checkAffected(result, "subtask", s.ID)
}

// DeleteSubtask removes a subtask by ID.
func (r *repo) DeleteSubtask(ctx context.Context, userID, id int64) error {
	result, err := r.ext.ExecContext(ctx, `
		DELETE FROM subtasks
		WHERE id = ? AND todo_id IN (SELECT id FROM todos WHERE user_id = ?)`,
		id, userID)
	if err != nil {
		return fmt.Errorf("deleting subtask %d: %w", id, err)
	}
	return checkAffected(result, "subtask", id)
}

// CloneSubtasks copies the subtasks of one todo onto another, keeping
// title and position and resetting completion.
func (r *repo) CloneSubtasks(ctx context.Context, fromTodoID, toTodoID int64) error {
	_, err := r.ext.ExecContext(ctx, `
		INSERT INTO subtasks (todo_id, title, completed, position)
		SELECT ?, title, 0, position FROM subtasks
		WHERE todo_id = ?
		ORDER BY position, id`,
		toTodoID, fromTodoID,
	)
	if err != nil {
		return fmt.Errorf("cloning subtasks from todo %d to %d: %w", fromTodoID, toTodoID, err)
	}
	return nil
}

// buildTodoQuery constructs the SQL query and args for a TodoFilter.
// Count queries skip grouping, ordering and pagination.
func (r *repo) buildTodoQuery(
	selectClause string,
	userID int64,
	filter TodoFilter,
	count bool,
) (string, []interface{}) {
	conditions := []string{"todos.user_id = ?"}
	args := []interface{}{userID}
	needsTagJoin := len(filter.TagIDs) > 0

	from := " FROM todos"
	if needsTagJoin {
		from += " INNER JOIN todo_tags ON todos.id = todo_tags.todo_id"
	}

	switch filter.Status {
	case StatusActive:
		conditions = append(conditions, "todos.completed_at IS NULL")
	case StatusCompleted:
		conditions = append(conditions, "todos.completed_at IS NOT NULL")
	}
	if filter.Priority != nil {
		conditions = append(conditions, "todos.priority = ?")
		args = append(args, *filter.Priority)
	}
	if needsTagJoin {
		placeholders := make([]string, len(filter.TagIDs))
		for i, id := range filter.TagIDs {
			placeholders[i] = "?"
			args = append(args, id)
		}
		conditions = append(conditions,
			"todo_tags.tag_id IN ("+strings.Join(placeholders, ", ")+")")
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		conditions = append(conditions, "todos.title LIKE ?")
		args = append(args, "%"+q+"%")
	}
	if filter.DueFrom != nil {
		conditions = append(conditions, "todos.due_date >= ?")
		args = append(args, dbTime(*filter.DueFrom))
	}
	if filter.DueTo != nil {
		conditions = append(conditions, "todos.due_date <= ?")
		args = append(args, dbTime(*filter.DueTo))
	}
	if filter.Due != "" {
		now := filter.Now
		if now.IsZero() {
			now = time.Now()
		}
		now = now.In(r.loc)
		today := clock.StartOfDay(now)

		switch filter.Due {
		case DueToday:
			conditions = append(conditions,
				"todos.due_date >= ? AND todos.due_date < ?")
			args = append(args, dbTime(today), dbTime(today.AddDate(0, 0, 1)))
		case DueUpcoming:
			conditions = append(conditions,
				"todos.due_date >= ? AND todos.due_date < ? AND todos.completed_at IS NULL")
			args = append(args, dbTime(today), dbTime(today.AddDate(0, 0, 7)))
		case DueOverdue:
			conditions = append(conditions,
				"todos.due_date < ? AND todos.completed_at IS NULL")
			args = append(args, dbTime(now))
		case DueThisWeek:
			conditions = append(conditions,
				"todos.due_date >= ? AND todos.due_date <= ?")
			args = append(args, dbTime(clock.StartOfWeek(now)), dbTime(clock.EndOfWeek(now)))
		}
	}

	query := selectClause + from + " WHERE " + strings.Join(conditions, " AND ")
	if count {
		return query, args
	}

	if needsTagJoin {
		query += " GROUP BY todos.id"
	}

	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}
	var order string
	switch filter.SortBy {
	case "due_date":
		order = "(todos.due_date IS NULL), todos.due_date " + direction
	case "priority":
		order = "CASE todos.priority WHEN 'high' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END " + direction
	case "created_at", "updated_at":
		order = "todos." + filter.SortBy + " " + direction
	case "title":
		order = "todos.title COLLATE NOCASE " + direction
	default:
		// Open todos first, soonest due first, undated last.
		order = "(todos.completed_at IS NOT NULL), (todos.due_date IS NULL), todos.due_date, todos.created_at DESC"
	}
	query += " ORDER BY " + order + ", todos.id"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		if filter.Limit <= 0 {
			query += " LIMIT -1"
		}
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	return query, args
}
