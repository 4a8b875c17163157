package repository_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"taskboard/internal/model"
	"taskboard/internal/repository"
	"taskboard/internal/testutil"
)

func TestColumnRepository_CreateAppendsAndDeleteCompacts(t *testing.T) {
	db := testutil.NewDB(t)
	fx := testutil.NewFixtures(t, db)
	board := fx.Board(fx.Project(fx.User("owner")))
	repo := repository.NewColumnRepository(db)
	ctx := context.Background()

	var created []*model.Column
	for _, name := range []string{"Todo", "Doing", "Done"} {
		column := &model.Column{BoardID: board.ID, Name: name}
		require.NoError(t, repo.Create(ctx, column))
		created = append(created, column)
	}
	for i, c := range created {
		assert.Equal(t, i, c.Position)
	}

	require.NoError(t, repo.Delete(ctx, created[0]))

	columns, err := repo.GetByBoardID(ctx, board.ID)
	require.NoError(t, err)
	require.Len(t, columns, 2)
	assert.Equal(t, "Doing", columns[0].Name)
	assert.Equal(t, 0, columns[0].Position)
	assert.Equal(t, 1, columns[1].Position)

	err = repo.Create(ctx, &model.Column{BoardID: uuid.New(), Name: "orphan"})
	assert.ErrorIs(t, err, repository.ErrBoardNotFound)
}

func TestBoardRepository_OneBoardPerProject(t *testing.T) {
	db := testutil.NewDB(t)
	fx := testutil.NewFixtures(t, db)
	project := fx.Project(fx.User("owner"))
	repo := repository.NewBoardRepository(db)

	require.NoError(t, repo.Create(context.Background(), &model.Board{ProjectID: project.ID, Name: "main"}))

	err := repo.Create(context.Background(), &model.Board{ProjectID: project.ID, Name: "second"})
	assert.ErrorIs(t, err, repository.ErrBoardExists)
}

func TestTaskRepository_CreateKeepsCreatorAndAppends(t *testing.T) {
	db := testutil.NewDB(t)
	fx := testutil.NewFixtures(t, db)
	owner := fx.User("owner")
	project := fx.Project(owner)
	column := fx.Columns(fx.Board(project), 1)[0]
	fx.Tasks(&column, 2)
	label := fx.Label(project, "bug")
	repo := repository.NewTaskRepository(db)
	ctx := context.Background()

	task := &model.Task{ColumnID: column.ID, Title: "new", Priority: model.PriorityHigh, CreatedBy: &owner.ID}
	require.NoError(t, repo.Create(ctx, task, project.ID, []uuid.UUID{label.ID}))
	assert.Equal(t, 2, task.Position)

	// An update carrying a different creator must not change it.
	other := fx.User("other")
	task.Title = "renamed"
	task.CreatedBy = &other.ID
	require.NoError(t, repo.Update(ctx, task, project.ID, nil))

	stored, err := repo.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", stored.Title)
	require.NotNil(t, stored.CreatedBy)
	assert.Equal(t, owner.ID, *stored.CreatedBy)
	require.Len(t, stored.Labels, 1)
	assert.Equal(t, label.ID, stored.Labels[0].ID)
}

func TestTaskRepository_RejectsLabelsFromOtherProject(t *testing.T) {
	db := testutil.NewDB(t)
	fx := testutil.NewFixtures(t, db)
	project := fx.Project(fx.User("owner"))
	column := fx.Columns(fx.Board(project), 1)[0]
	task := fx.Tasks(&column, 1)[0]
	foreign := fx.Label(fx.Project(fx.User("other")), "bug")
	repo := repository.NewTaskRepository(db)
	ctx := context.Background()

	err := repo.Create(ctx, &model.Task{ColumnID: column.ID, Title: "x", Priority: model.PriorityLow}, project.ID, []uuid.UUID{foreign.ID})
	assert.ErrorIs(t, err, repository.ErrLabelOutsideProject)

	err = repo.AddLabel(ctx, task.ID, project.ID, foreign.ID)
	assert.ErrorIs(t, err, repository.ErrLabelOutsideProject)

	tasks, err := repo.GetByColumnID(ctx, column.ID)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestTaskRepository_AddAndRemoveLabel(t *testing.T) {
	db := testutil.NewDB(t)
	fx := testutil.NewFixtures(t, db)
	project := fx.Project(fx.User("owner"))
	column := fx.Columns(fx.Board(project), 1)[0]
	task := fx.Tasks(&column, 1)[0]
	label := fx.Label(project, "ux")
	repo := repository.NewTaskRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.AddLabel(ctx, task.ID, project.ID, label.ID))
	require.NoError(t, repo.AddLabel(ctx, task.ID, project.ID, label.ID))
	stored, err := repo.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Labels, 1)

	require.NoError(t, repo.RemoveLabel(ctx, task.ID, label.ID))
	stored, err = repo.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Labels)
}

func TestTaskRepository_MoveAppendsAndCompacts(t *testing.T) {
	db := testutil.NewDB(t)
	fx := testutil.NewFixtures(t, db)
	project := fx.Project(fx.User("owner"))
	columns := fx.Columns(fx.Board(project), 2)
	source := fx.Tasks(&columns[0], 3)
	fx.Tasks(&columns[1], 1)
	repo := repository.NewTaskRepository(db)
	ctx := context.Background()

	moved, err := repo.MoveTask(ctx, source[0].ID, columns[1].ID)
	require.NoError(t, err)
	assert.Equal(t, columns[1].ID, moved.ColumnID)
	assert.Equal(t, 1, moved.Position)

	assert.Equal(t, map[uuid.UUID]int{source[1].ID: 0, source[2].ID: 1},
		testutil.Positions(t, db, "tasks", "column_id", columns[0].ID))

	otherColumn := fx.Columns(fx.Board(fx.Project(fx.User("other"))), 1)[0]
	_, err = repo.MoveTask(ctx, source[1].ID, otherColumn.ID)
	assert.ErrorIs(t, err, repository.ErrColumnOutsideBoard)

	_, err = repo.MoveTask(ctx, source[1].ID, uuid.New())
	assert.ErrorIs(t, err, repository.ErrColumnNotFound)
}

func TestTaskRepository_MoveFollowsConcurrentMove(t *testing.T) {
	db := testutil.NewDB(t)
	fx := testutil.NewFixtures(t, db)
	columns := fx.Columns(fx.Board(fx.Project(fx.User("owner"))), 3)
	a, b, c := columns[0], columns[1], columns[2]
	inA := fx.Tasks(&a, 2)
	inB := fx.Tasks(&b, 1)

	// Another writer moves inA[0] to the top of column B right after
	// MoveTask first reads the task, before it takes any column lock.
	moved := false
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("test:concurrent_move", func(tx *gorm.DB) {
		if moved || tx.Statement.Table != "tasks" {
			return
		}
		moved = true
		session := tx.Session(&gorm.Session{NewDB: true})
		for _, stmt := range []struct {
			sql  string
			args []interface{}
		}{
			{"UPDATE tasks SET position = position + 1 WHERE column_id = ?", []interface{}{b.ID}},
			{"UPDATE tasks SET column_id = ?, position = 0 WHERE id = ?", []interface{}{b.ID, inA[0].ID}},
			{"UPDATE tasks SET position = 0 WHERE id = ?", []interface{}{inA[1].ID}},
		} {
			_ = tx.AddError(session.Exec(stmt.sql, stmt.args...).Error)
		}
	}))
	t.Cleanup(func() { _ = db.Callback().Query().Remove("test:concurrent_move") })

	task, err := repository.NewTaskRepository(db).MoveTask(context.Background(), inA[0].ID, c.ID)
	require.NoError(t, err)
	require.True(t, moved)
	assert.Equal(t, c.ID, task.ColumnID)

	assert.Equal(t, map[uuid.UUID]int{inA[1].ID: 0}, testutil.Positions(t, db, "tasks", "column_id", a.ID))
	assert.Equal(t, map[uuid.UUID]int{inB[0].ID: 0}, testutil.Positions(t, db, "tasks", "column_id", b.ID))
	assert.Equal(t, map[uuid.UUID]int{inA[0].ID: 0}, testutil.Positions(t, db, "tasks", "column_id", c.ID))
}

func TestTaskRepository_DeleteCompacts(t *testing.T) {
	db := testutil.NewDB(t)
	fx := testutil.NewFixtures(t, db)
	column := fx.Columns(fx.Board(fx.Project(fx.User("owner"))), 1)[0]
	tasks := fx.Tasks(&column, 3)
	repo := repository.NewTaskRepository(db)

	require.NoError(t, repo.Delete(context.Background(), &tasks[1]))

	assert.Equal(t, map[uuid.UUID]int{tasks[0].ID: 0, tasks[2].ID: 1},
		testutil.Positions(t, db, "tasks", "column_id", column.ID))
}

func TestProjectDelete_Cascades(t *testing.T) {
	db := testutil.NewDB(t)
	fx := testutil.NewFixtures(t, db)
	owner := fx.User("owner")
	project := fx.Project(owner)
	fx.Member(project, fx.User("member"), model.RoleMember)
	column := fx.Columns(fx.Board(project), 1)[0]
	task := fx.Tasks(&column, 1)[0]
	label := fx.Label(project, "bug")
	ctx := context.Background()

	require.NoError(t, repository.NewTaskRepository(db).AddLabel(ctx, task.ID, project.ID, label.ID))
	require.NoError(t, repository.NewCommentRepository(db).Create(ctx, &model.Comment{TaskID: task.ID, AuthorID: owner.ID, Content: "hi"}))

	require.NoError(t, repository.NewProjectRepository(db).Delete(ctx, project.ID))

	for _, table := range []string{"memberships", "boards", "columns", "tasks", "labels", "task_labels", "comments"} {
		var count int64
		require.NoError(t, db.Table(table).Count(&count).Error)
		assert.Zero(t, count, table)
	}
}

func TestUserDelete_NullsTaskReferences(t *testing.T) {
	db := testutil.NewDB(t)
	fx := testutil.NewFixtures(t, db)
	owner := fx.User("owner")
	project := fx.Project(owner)
	leaver := fx.User("leaver")
	fx.Member(project, leaver, model.RoleMember)
	column := fx.Columns(fx.Board(project), 1)[0]
	ctx := context.Background()

	repo := repository.NewTaskRepository(db)
	task := &model.Task{ColumnID: column.ID, Title: "t", Priority: model.PriorityLow, CreatedBy: &leaver.ID, AssigneeID: &leaver.ID}
	require.NoError(t, repo.Create(ctx, task, project.ID, nil))

	require.NoError(t, db.Delete(&model.User{}, "id = ?", leaver.ID).Error)

	stored, err := repo.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.CreatedBy)
	assert.Nil(t, stored.AssigneeID)
}

func TestCommentRepository_ScopedToTask(t *testing.T) {
	db := testutil.NewDB(t)
	fx := testutil.NewFixtures(t, db)
	owner := fx.User("owner")
	column := fx.Columns(fx.Board(fx.Project(owner)), 1)[0]
	tasks := fx.Tasks(&column, 2)
	repo := repository.NewCommentRepository(db)
	ctx := context.Background()

	comment := &model.Comment{TaskID: tasks[0].ID, AuthorID: owner.ID, Content: "first"}
	require.NoError(t, repo.Create(ctx, comment))

	got, err := repo.GetByID(ctx, tasks[0].ID, comment.ID)
	require.NoError(t, err)
	assert.Equal(t, owner.ID, got.Author.ID)

	_, err = repo.GetByID(ctx, tasks[1].ID, comment.ID)
	assert.ErrorIs(t, err, repository.ErrCommentNotFound)
}

func TestLabelRepository_UniqueNamePerProject(t *testing.T) {
	db := testutil.NewDB(t)
	fx := testutil.NewFixtures(t, db)
	project := fx.Project(fx.User("owner"))
	repo := repository.NewLabelRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &model.Label{ProjectID: project.ID, Name: "bug", Color: "#f00"}))
	err := repo.Create(ctx, &model.Label{ProjectID: project.ID, Name: "bug", Color: "#0f0"})
	assert.ErrorIs(t, err, repository.ErrLabelExists)

	other := fx.Project(fx.User("other"))
	assert.NoError(t, repo.Create(ctx, &model.Label{ProjectID: other.ID, Name: "bug", Color: "#00f"}))
}

func TestHierarchyRepository_Scopes(t *testing.T) {
	db := testutil.NewDB(t)
	fx := testutil.NewFixtures(t, db)
	project := fx.Project(fx.User("owner"))
	board := fx.Board(project)
	column := fx.Columns(board, 1)[0]
	task := fx.Tasks(&column, 1)[0]
	repo := repository.NewHierarchyRepository(db)
	ctx := context.Background()

	scope, err := repo.TaskScope(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Scope{ProjectID: project.ID, BoardID: board.ID, ColumnID: column.ID, TaskID: task.ID}, scope)

	scope, err = repo.ColumnScope(ctx, column.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Scope{ProjectID: project.ID, BoardID: board.ID, ColumnID: column.ID}, scope)

	_, err = repo.BoardScope(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrBoardNotFound)
}
