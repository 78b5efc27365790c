package store

import (
	"context"
	"fmt"

	"github.com/goliatone/go-entitycache/model"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// UserStore persists users.
type UserStore interface {
	Store[model.User]
}

// TeamStore persists teams and their members.
type TeamStore interface {
	Store[model.Team]
	CreateMember(ctx context.Context, member *model.TeamMember) error
	UpdateMember(ctx context.Context, member *model.TeamMember) error
	DeleteMember(ctx context.Context, id string) (model.TeamMember, error)
	DeleteMembers(ctx context.Context, teamID string, userIDs []string) ([]model.TeamMember, error)
	// FindOwner reports which projects and organizations use the team.
	FindOwner(ctx context.Context, teamID string) (model.TeamOwner, error)
}

// OrganizationStore persists organizations.
type OrganizationStore interface {
	Store[model.Organization]
	IDsByMember(ctx context.Context, userID string) ([]string, error)
}

// ProjectIDQuery filters project ids for batch jobs. Results are ordered by
// id and start strictly after After.
type ProjectIDQuery struct {
	Visibilities []model.ProjectVisibility
	Statuses     []model.PublishingStatus
	After        string
	Limit        int
}

// ProjectStore persists projects and their gallery.
type ProjectStore interface {
	Store[model.Project]
	// UpdateMany writes every project in one transaction.
	UpdateMany(ctx context.Context, projects []model.Project) error
	IDsByMember(ctx context.Context, userID string) ([]string, error)
	ListIDs(ctx context.Context, query ProjectIDQuery) ([]string, error)
}

// VersionStore persists versions and reads them grouped by project.
type VersionStore interface {
	FindByProject(ctx context.Context, project Lookup) (model.ProjectVersions, error)
	FindManyByProject(ctx context.Context, projectIDs []string) ([]model.ProjectVersions, error)
	Create(ctx context.Context, version *model.Version) error
	Update(ctx context.Context, version *model.Version) error
	Delete(ctx context.Context, id string) (model.Version, error)
	DeleteMany(ctx context.Context, ids []string) ([]model.Version, error)
	DeleteByProject(ctx context.Context, projectID string) ([]model.Version, error)
}

// CollectionStore persists collections.
type CollectionStore interface {
	Store[model.Collection]
	IDsByUser(ctx context.Context, userID string) ([]string, error)
	DeleteByUser(ctx context.Context, userID string) ([]model.Collection, error)
}

// FileStore persists file metadata.
type FileStore interface {
	Store[model.File]
	CreateMany(ctx context.Context, files []model.File) error
	DeleteMany(ctx context.Context, ids []string) ([]model.File, error)
}

// Users returns the bun backed UserStore.
func Users(db *bun.DB) UserStore {
	return NewTable(db, func(u *model.User) *string { return &u.ID },
		WithKeyColumn[model.User]("user_name"),
	)
}

type teamTable struct {
	*Table[model.Team]
	members *Table[model.TeamMember]
}

// Teams returns the bun backed TeamStore.
func Teams(db *bun.DB) TeamStore {
	t := &teamTable{
		members: NewTable(db, func(m *model.TeamMember) *string { return &m.ID }),
	}
	t.Table = NewTable(db, func(team *model.Team) *string { return &team.ID },
		WithLoad(t.loadMembers),
	)
	return t
}

func (t *teamTable) loadMembers(ctx context.Context, teams []model.Team) error {
	ids := make([]string, len(teams))
	for i, team := range teams {
		ids[i] = team.ID
	}

	members, _, err := t.members.Repository().List(ctx,
		repository.SelectColumnIn("team_id", ids),
		unpaged,
	)
	if err != nil {
		return fmt.Errorf("load team members: %w", err)
	}

	byTeam := make(map[string][]model.TeamMember, len(teams))
	for _, m := range members {
		byTeam[m.TeamID] = append(byTeam[m.TeamID], *m)
	}
	for i := range teams {
		teams[i].Members = byTeam[teams[i].ID]
		model.SortMembers(teams[i].Members)
	}
	return nil
}

func (t *teamTable) Delete(ctx context.Context, id string) (model.Team, error) {
	team, err := t.Table.Delete(ctx, id)
	if err != nil {
		return team, err
	}
	if err := t.members.DeleteWhere(ctx, repository.DeleteBy("team_id", "=", id)); err != nil {
		return team, fmt.Errorf("delete team members: %w", err)
	}
	return team, nil
}

func (t *teamTable) CreateMember(ctx context.Context, member *model.TeamMember) error {
	return t.members.Create(ctx, member)
}

func (t *teamTable) UpdateMember(ctx context.Context, member *model.TeamMember) error {
	return t.members.Update(ctx, member)
}

func (t *teamTable) DeleteMember(ctx context.Context, id string) (model.TeamMember, error) {
	return t.members.Delete(ctx, id)
}

func (t *teamTable) DeleteMembers(ctx context.Context, teamID string, userIDs []string) ([]model.TeamMember, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	found, _, err := t.members.Repository().List(ctx,
		repository.SelectBy("team_id", "=", teamID),
		repository.SelectColumnIn("user_id", userIDs),
		unpaged,
	)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, nil
	}

	members := make([]model.TeamMember, len(found))
	ids := make([]string, len(found))
	for i, m := range found {
		members[i] = *m
		ids[i] = m.ID
	}
	if err := t.members.DeleteWhere(ctx, deleteIn("id", ids)); err != nil {
		return nil, err
	}
	return members, nil
}

func (t *teamTable) FindOwner(ctx context.Context, teamID string) (model.TeamOwner, error) {
	var owner model.TeamOwner

	err := t.db.NewSelect().Model((*model.Project)(nil)).
		Column("id").
		Where("team_id = ?", teamID).
		Scan(ctx, &owner.ProjectIDs)
	if err != nil {
		return owner, fmt.Errorf("find team projects: %w", err)
	}

	err = t.db.NewSelect().Model((*model.Organization)(nil)).
		Column("id").
		Where("team_id = ?", teamID).
		Scan(ctx, &owner.OrganizationIDs)
	if err != nil {
		return owner, fmt.Errorf("find team organizations: %w", err)
	}

	return owner, nil
}

type organizationTable struct {
	*Table[model.Organization]
}

// Organizations returns the bun backed OrganizationStore.
func Organizations(db *bun.DB) OrganizationStore {
	o := &organizationTable{}
	o.Table = NewTable(db, func(org *model.Organization) *string { return &org.ID },
		WithKeyColumn[model.Organization]("slug"),
		WithLoad(o.loadProjects),
	)
	return o
}

type organizationProjectRow struct {
	ID             string `bun:"id"`
	TeamID         string `bun:"team_id"`
	OrganizationID string `bun:"organization_id"`
}

func (o *organizationTable) loadProjects(ctx context.Context, orgs []model.Organization) error {
	ids := make([]string, len(orgs))
	for i, org := range orgs {
		ids[i] = org.ID
	}

	var rows []organizationProjectRow
	err := o.db.NewSelect().Model((*model.Project)(nil)).
		Column("id", "team_id", "organization_id").
		Where("organization_id IN (?)", bun.In(ids)).
		Scan(ctx, &rows)
	if err != nil {
		return fmt.Errorf("load organization projects: %w", err)
	}

	byOrg := make(map[string][]model.OrganizationProject, len(orgs))
	for _, r := range rows {
		byOrg[r.OrganizationID] = append(byOrg[r.OrganizationID], model.OrganizationProject{ID: r.ID, TeamID: r.TeamID})
	}
	for i := range orgs {
		orgs[i].Projects = byOrg[orgs[i].ID]
	}
	return nil
}

func (o *organizationTable) IDsByMember(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := o.db.NewSelect().Model((*model.Organization)(nil)).
		ColumnExpr("o.id").
		Join("JOIN team_members AS tm ON tm.team_id = o.team_id").
		Where("tm.user_id = ?", userID).
		OrderExpr("o.id ASC").
		Scan(ctx, &ids)
	return ids, err
}

type projectTable struct {
	*Table[model.Project]
	gallery *Table[model.GalleryItem]
}

// Projects returns the bun backed ProjectStore.
func Projects(db *bun.DB) ProjectStore {
	p := &projectTable{
		gallery: NewTable(db, func(g *model.GalleryItem) *string { return &g.ID }),
	}
	p.Table = NewTable(db, func(project *model.Project) *string { return &project.ID },
		WithKeyColumn[model.Project]("slug"),
		WithLoad(p.loadGallery),
	)
	return p
}

func (p *projectTable) loadGallery(ctx context.Context, projects []model.Project) error {
	ids := make([]string, len(projects))
	for i, project := range projects {
		ids[i] = project.ID
	}

	items, _, err := p.gallery.Repository().List(ctx,
		repository.SelectColumnIn("project_id", ids),
		repository.SelectOrderAsc("order_index"),
		unpaged,
	)
	if err != nil {
		return fmt.Errorf("load project gallery: %w", err)
	}

	byProject := make(map[string][]model.GalleryItem, len(projects))
	for _, item := range items {
		byProject[item.ProjectID] = append(byProject[item.ProjectID], *item)
	}
	for i := range projects {
		projects[i].Gallery = byProject[projects[i].ID]
	}
	return nil
}

func (p *projectTable) UpdateMany(ctx context.Context, projects []model.Project) error {
	if len(projects) == 0 {
		return nil
	}
	for i := range projects {
		if err := validate(&projects[i]); err != nil {
			return err
		}
	}

	return p.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for i := range projects {
			_, err := p.repo.UpdateTx(ctx, tx, &projects[i], allColumns(&projects[i]))
			if repository.IsSQLExpectedCountViolation(err) {
				return NotFound(typeName[model.Project](), ByID(projects[i].ID).String())
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (p *projectTable) Delete(ctx context.Context, id string) (model.Project, error) {
	project, err := p.Table.Delete(ctx, id)
	if err != nil {
		return project, err
	}
	if err := p.gallery.DeleteWhere(ctx, repository.DeleteBy("project_id", "=", id)); err != nil {
		return project, fmt.Errorf("delete project gallery: %w", err)
	}
	return project, nil
}

func (p *projectTable) IDsByMember(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := p.db.NewSelect().Model((*model.Project)(nil)).
		ColumnExpr("p.id").
		Join("JOIN team_members AS tm ON tm.team_id = p.team_id").
		Where("tm.user_id = ?", userID).
		OrderExpr("p.id ASC").
		Scan(ctx, &ids)
	return ids, err
}

func (p *projectTable) ListIDs(ctx context.Context, query ProjectIDQuery) ([]string, error) {
	q := p.db.NewSelect().Model((*model.Project)(nil)).Column("id")

	if len(query.Visibilities) > 0 {
		q = q.Where("visibility IN (?)", bun.In(query.Visibilities))
	}
	if len(query.Statuses) > 0 {
		q = q.Where("status IN (?)", bun.In(query.Statuses))
	}
	if query.After != "" {
		q = q.Where("id > ?", query.After)
	}
	if query.Limit > 0 {
		q = q.Limit(query.Limit)
	}

	var ids []string
	err := q.OrderExpr("id ASC").Scan(ctx, &ids)
	return ids, err
}

type collectionTable struct {
	*Table[model.Collection]
}

// Collections returns the bun backed CollectionStore.
func Collections(db *bun.DB) CollectionStore {
	return &collectionTable{
		Table: NewTable(db, func(c *model.Collection) *string { return &c.ID }),
	}
}

func (c *collectionTable) IDsByUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := c.byUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	return ids, nil
}

func (c *collectionTable) DeleteByUser(ctx context.Context, userID string) ([]model.Collection, error) {
	rows, err := c.byUser(ctx, userID)
	if err != nil || len(rows) == 0 {
		return nil, err
	}

	deleted := make([]model.Collection, len(rows))
	for i, row := range rows {
		deleted[i] = *row
	}
	if err := c.DeleteWhere(ctx, repository.DeleteBy("user_id", "=", userID)); err != nil {
		return nil, err
	}
	return deleted, nil
}

func (c *collectionTable) byUser(ctx context.Context, userID string) ([]*model.Collection, error) {
	rows, _, err := c.repo.List(ctx,
		repository.SelectBy("user_id", "=", userID),
		repository.SelectOrderDesc("date_created"),
		unpaged,
	)
	return rows, err
}

type fileTable struct {
	*Table[model.File]
}

// Files returns the bun backed FileStore.
func Files(db *bun.DB) FileStore {
	return &fileTable{
		Table: NewTable(db, func(f *model.File) *string { return &f.ID }),
	}
}

func (f *fileTable) CreateMany(ctx context.Context, files []model.File) error {
	if len(files) == 0 {
		return nil
	}

	records := make([]*model.File, len(files))
	for i := range files {
		if files[i].ID == "" {
			files[i].ID = model.NewID()
		}
		if err := validate(&files[i]); err != nil {
			return err
		}
		records[i] = &files[i]
	}
	_, err := f.repo.CreateMany(ctx, records)
	return err
}

func (f *fileTable) DeleteMany(ctx context.Context, ids []string) ([]model.File, error) {
	files, err := f.FindMany(ctx, ids)
	if err != nil || len(files) == 0 {
		return files, err
	}
	if err := f.DeleteWhere(ctx, deleteIn("id", ids)); err != nil {
		return nil, err
	}
	return files, nil
}

// deleteIn matches rows whose column is one of values.
func deleteIn(column string, values []string) repository.DeleteCriteria {
	return func(q *bun.DeleteQuery) *bun.DeleteQuery {
		return q.Where("?TableAlias.? IN (?)", bun.Ident(column), bun.In(values))
	}
}
