package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-entitycache/cache"
	"github.com/goliatone/go-entitycache/model"
	"github.com/goliatone/go-entitycache/pkg/testsupport"
	"github.com/goliatone/go-entitycache/search"
	"github.com/goliatone/go-entitycache/store"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fixture struct {
	ctx   context.Context
	kv    *testsupport.MemoryKV
	index *testsupport.RecordingIndex
	logs  *observer.ObservedLogs
	repos *Repositories
}

var joined = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := store.Open(store.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.CreateSchema(ctx, db))

	kv := testsupport.NewMemoryKV()
	caches, err := NewCaches(kv, cache.DefaultConfig(), zap.NewNop(), nil)
	require.NoError(t, err)

	core, logs := observer.New(zap.WarnLevel)
	logger := zap.New(core)
	index := testsupport.NewRecordingIndex()

	repos := New(Stores{
		Users:         store.Users(db),
		Teams:         store.Teams(db),
		Organizations: store.Organizations(db),
		Projects:      store.Projects(db),
		Versions:      store.Versions(db),
		Collections:   store.Collections(db),
		Files:         store.Files(db),
	}, caches, WithLogger(logger), WithSyncer(search.NewSyncer(index, logger)))

	f := &fixture{ctx: ctx, kv: kv, index: index, logs: logs, repos: repos}
	f.seed(t)
	return f
}

// seed creates three users, a personal project team (alice owner, bob) and
// an organization team (alice owner, carol) owning a second project.
func (f *fixture) seed(t *testing.T) {
	t.Helper()
	r := f.repos

	for _, u := range []model.User{
		{ID: "u_alice", UserName: "alice", Email: "alice@example.com", Role: "developer"},
		{ID: "u_bob", UserName: "bob", Email: "bob@example.com", Role: "developer"},
		{ID: "u_carol", UserName: "carol", Email: "carol@example.com", Role: "developer"},
	} {
		require.NoError(t, r.Users.Create(f.ctx, &u))
	}

	require.NoError(t, r.Teams.Create(f.ctx, &model.Team{ID: "t_sodium"}))
	require.NoError(t, r.Teams.Create(f.ctx, &model.Team{ID: "t_org"}))
	for _, m := range []model.TeamMember{
		{ID: "m_alice", TeamID: "t_sodium", UserID: "u_alice", IsOwner: true, Accepted: true, DateAccepted: joined},
		{ID: "m_bob", TeamID: "t_sodium", UserID: "u_bob", Accepted: true, DateAccepted: joined.Add(time.Hour)},
		{ID: "m_org_alice", TeamID: "t_org", UserID: "u_alice", IsOwner: true, Accepted: true, DateAccepted: joined},
		{ID: "m_org_carol", TeamID: "t_org", UserID: "u_carol", Accepted: true, DateAccepted: joined.Add(time.Hour)},
	} {
		require.NoError(t, r.Teams.AddMember(f.ctx, &m))
	}

	require.NoError(t, r.Organizations.Create(f.ctx, &model.Organization{
		ID:     "o_caffeine",
		TeamID: "t_org",
		Slug:   "CaffeineMC",
		Name:   "CaffeineMC",
	}, "u_alice"))

	require.NoError(t, r.Projects.Create(f.ctx, &model.Project{
		ID:         "p_sodium",
		TeamID:     "t_sodium",
		Name:       "Sodium",
		Slug:       "sodium",
		Status:     model.StatusPublished,
		Visibility: model.VisibilityListed,
		Downloads:  1200,
		Loaders:    []string{"fabric"},
	}))
	require.NoError(t, r.Projects.Create(f.ctx, &model.Project{
		ID:             "p_lithium",
		TeamID:         "t_org",
		OrganizationID: "o_caffeine",
		Name:           "Lithium",
		Slug:           "lithium",
		Status:         model.StatusPublished,
		Visibility:     model.VisibilityListed,
	}))

	f.kv.ResetCalls()
	f.index.Reset()
}

func (f *fixture) project(t *testing.T, id string) model.Project {
	t.Helper()
	details, err := f.repos.Projects.Get(f.ctx, id)
	require.NoError(t, err)
	return details.Project
}

func projectIDs[T interface{ model.ProjectDetails | model.ProjectSummary }](records []T) []string {
	ids := make([]string, 0, len(records))
	for _, r := range records {
		switch v := any(r).(type) {
		case model.ProjectDetails:
			ids = append(ids, v.ID)
		case model.ProjectSummary:
			ids = append(ids, v.ID)
		}
	}
	return ids
}

func TestProjects_GetJoinsRelations(t *testing.T) {
	f := newFixture(t)

	details, err := f.repos.Projects.Get(f.ctx, "p_lithium")
	require.NoError(t, err)

	assert.Equal(t, "lithium", details.Slug)
	require.NotNil(t, details.Organization)
	assert.Equal(t, "o_caffeine", details.Organization.ID)
	require.Len(t, details.Team.Members, 2)
	require.NotNil(t, details.Team.Members[0].User)
	assert.Equal(t, "alice", details.Team.Members[0].User.UserName, "owner sorts first")
	assert.Equal(t, "carol", details.Team.Members[1].User.UserName)

	pointer, ok := f.kv.Raw("project-details:p_lithium")
	require.True(t, ok)
	assert.Equal(t, "@lithium", pointer)
	assert.True(t, f.kv.Has("project-details:lithium"))
	assert.True(t, f.kv.Has("team-data:t_org"))

	bySlug, err := f.repos.Projects.GetBySlug(f.ctx, "LITHIUM")
	require.NoError(t, err)
	assert.Equal(t, details.ID, bySlug.ID)
}

func TestProjects_CompositeDroppedWhenTeamMissing(t *testing.T) {
	f := newFixture(t)

	ghost := model.Project{
		ID:         "p_ghost",
		TeamID:     "t_missing",
		Name:       "Ghost",
		Slug:       "ghost",
		Status:     model.StatusPublished,
		Visibility: model.VisibilityListed,
	}
	require.NoError(t, f.repos.Projects.Create(f.ctx, &ghost))

	details, err := f.repos.Projects.GetManyDetails(f.ctx, []string{"p_sodium", "p_ghost"})
	require.NoError(t, err)
	assert.Equal(t, []string{"p_sodium"}, projectIDs(details))

	items, err := f.repos.Projects.GetManyListItems(f.ctx, []string{"p_sodium", "p_ghost"})
	require.NoError(t, err)
	assert.Equal(t, []string{"p_sodium"}, projectIDs(items))

	_, err = f.repos.Projects.Get(f.ctx, "p_ghost")
	assert.True(t, store.IsNotFound(err), "got %v", err)
}

func TestTeams_RemoveMemberCascades(t *testing.T) {
	f := newFixture(t)

	_, err := f.repos.Projects.Get(f.ctx, "p_sodium")
	require.NoError(t, err)
	listed, err := f.repos.Projects.ListByUser(f.ctx, "u_bob")
	require.NoError(t, err)
	require.Equal(t, []string{"p_sodium"}, projectIDs(listed))
	f.kv.ResetCalls()

	_, err = f.repos.Teams.RemoveMember(f.ctx, "m_bob")
	require.NoError(t, err)

	assert.Subset(t, f.kv.DeletedKeys(), []string{
		"team-data:t_sodium",
		"project-details:p_sodium",
		"project-details:sodium",
		"project-list-item:p_sodium",
		"project-list-item:sodium",
		"user-projects:u_bob",
		"user-organizations:u_bob",
	})
	assert.False(t, f.kv.Has("project-details:sodium"))

	listed, err = f.repos.Projects.ListByUser(f.ctx, "u_bob")
	require.NoError(t, err)
	assert.Empty(t, listed)

	team, err := f.repos.Teams.Get(f.ctx, "t_sodium")
	require.NoError(t, err)
	require.Len(t, team.Members, 1)
	assert.Equal(t, "u_alice", team.Members[0].UserID)
}

func TestTeams_RemoveMembersByUser(t *testing.T) {
	f := newFixture(t)

	_, err := f.repos.Organizations.Get(f.ctx, "o_caffeine")
	require.NoError(t, err)
	f.kv.ResetCalls()

	removed, err := f.repos.Teams.RemoveMembers(f.ctx, "t_org", []string{"u_carol", "u_nobody"})
	require.NoError(t, err)
	require.Len(t, removed, 1)
	assert.Equal(t, "m_org_carol", removed[0].ID)

	assert.Subset(t, f.kv.DeletedKeys(), []string{
		"team-data:t_org",
		"org-data:o_caffeine",
		"org-data:caffeinemc",
		"user-organizations:u_carol",
	})
}

func TestTeams_MembersRejoinedAfterRename(t *testing.T) {
	f := newFixture(t)

	_, err := f.repos.Teams.Get(f.ctx, "t_sodium")
	require.NoError(t, err)

	alice, err := f.repos.Users.Get(f.ctx, "u_alice")
	require.NoError(t, err)
	alice.UserName = "alicia"
	require.NoError(t, f.repos.Users.Update(f.ctx, &alice))

	assert.True(t, f.kv.Has("team-data:t_sodium"), "user changes never cascade into teams")
	assert.NotContains(t, f.kv.DeletedKeys(), "team-data:t_sodium")

	team, err := f.repos.Teams.Get(f.ctx, "t_sodium")
	require.NoError(t, err)
	require.NotNil(t, team.Members[0].User)
	assert.Equal(t, "alicia", team.Members[0].User.UserName)

	_, err = f.repos.Users.GetByUserName(f.ctx, "alice")
	assert.True(t, store.IsNotFound(err), "got %v", err)

	renamed, err := f.repos.Users.GetByUserName(f.ctx, "Alicia")
	require.NoError(t, err)
	assert.Equal(t, "u_alice", renamed.ID)
}

func TestUsers_CreateWritesThrough(t *testing.T) {
	f := newFixture(t)

	pointer, ok := f.kv.Raw("user-data:u_bob")
	require.True(t, ok)
	assert.Equal(t, "@bob", pointer)
	assert.True(t, f.kv.Has("user-data:bob"))
}

func TestUsers_DeleteDropsAggregates(t *testing.T) {
	f := newFixture(t)

	_, err := f.repos.Projects.ListByUser(f.ctx, "u_bob")
	require.NoError(t, err)
	_, err = f.repos.Organizations.ListByUser(f.ctx, "u_bob")
	require.NoError(t, err)
	_, err = f.repos.Collections.ListByUser(f.ctx, "u_bob")
	require.NoError(t, err)

	keys := []string{
		"user-data:u_bob",
		"user-data:bob",
		"user-projects:u_bob",
		"user-organizations:u_bob",
		"user-collections:u_bob",
	}
	for _, key := range keys {
		require.True(t, f.kv.Has(key), key)
	}

	_, err = f.repos.Users.Delete(f.ctx, "u_bob")
	require.NoError(t, err)

	for _, key := range keys {
		assert.False(t, f.kv.Has(key), key)
	}

	team, err := f.repos.Teams.Get(f.ctx, "t_sodium")
	require.NoError(t, err)
	require.Len(t, team.Members, 1, "members without a user are dropped")
	assert.Equal(t, "u_alice", team.Members[0].UserID)
}

func TestProjects_SlugChangeInvalidatesBothSlugs(t *testing.T) {
	f := newFixture(t)

	p := f.project(t, "p_sodium")
	_, err := f.repos.Versions.ForProjectSlug(f.ctx, "sodium")
	require.NoError(t, err)
	require.True(t, f.kv.Has("project-versions:sodium"))

	p.Slug = "sodium-fabric"
	require.NoError(t, f.repos.Projects.Update(f.ctx, &p))

	for _, key := range []string{
		"project-details:p_sodium",
		"project-details:sodium",
		"project-versions:p_sodium",
		"project-versions:sodium",
	} {
		assert.False(t, f.kv.Has(key), key)
	}

	_, err = f.repos.Projects.GetBySlug(f.ctx, "sodium")
	assert.True(t, store.IsNotFound(err), "got %v", err)

	renamed, err := f.repos.Projects.GetBySlug(f.ctx, "sodium-fabric")
	require.NoError(t, err)
	assert.Equal(t, "p_sodium", renamed.ID)

	versions, err := f.repos.Versions.ForProject(f.ctx, "p_sodium")
	require.NoError(t, err)
	assert.Equal(t, "sodium-fabric", versions.Slug)

	assert.Empty(t, f.index.Calls(), "slug is not a ranking field")
}

func TestVersions_MutationsInvalidateProject(t *testing.T) {
	f := newFixture(t)

	_ = f.project(t, "p_sodium")
	list, err := f.repos.Versions.ForProject(f.ctx, "p_sodium")
	require.NoError(t, err)
	require.Empty(t, list.Versions)

	v := model.Version{
		ProjectID:      "p_sodium",
		Title:          "Sodium 0.5",
		VersionNumber:  "0.5.0",
		Slug:           "0-5-0",
		ReleaseChannel: model.ChannelRelease,
		DatePublished:  joined,
	}
	require.NoError(t, f.repos.Versions.Create(f.ctx, &v))
	require.NotEmpty(t, v.ID)

	for _, key := range []string{
		"project-versions:p_sodium",
		"project-versions:sodium",
		"project-details:p_sodium",
		"project-details:sodium",
	} {
		assert.False(t, f.kv.Has(key), key)
	}
	assert.Equal(t, []testsupport.IndexCall{{Op: "update", IDs: []string{"p_sodium"}}}, f.index.Calls())

	list, err = f.repos.Versions.ForProject(f.ctx, "p_sodium")
	require.NoError(t, err)
	require.Len(t, list.Versions, 1)
	assert.Equal(t, "0.5.0", list.Versions[0].VersionNumber)

	_, err = f.repos.Versions.Delete(f.ctx, v.ID)
	require.NoError(t, err)

	list, err = f.repos.Versions.ForProjectSlug(f.ctx, "Sodium")
	require.NoError(t, err)
	assert.Empty(t, list.Versions)
}

func TestVersions_ForProjects(t *testing.T) {
	f := newFixture(t)

	lists, err := f.repos.Versions.ForProjects(f.ctx, []string{"p_sodium", "p_lithium", "p_unknown"})
	require.NoError(t, err)
	require.Len(t, lists, 2)
	assert.True(t, f.kv.Has("project-versions:lithium"))
}

func TestProjects_IndexFollowsVisibility(t *testing.T) {
	f := newFixture(t)

	p := model.Project{
		ID:         "p_iris",
		TeamID:     "t_sodium",
		Name:       "Iris",
		Slug:       "iris",
		Status:     model.StatusPublished,
		Visibility: model.VisibilityPrivate,
	}
	require.NoError(t, f.repos.Projects.Create(f.ctx, &p))
	assert.Empty(t, f.index.Calls(), "private projects are not indexed")

	steps := []struct {
		name   string
		mutate func(*model.Project)
		want   []testsupport.IndexCall
	}{
		{
			name:   "listed",
			mutate: func(p *model.Project) { p.Visibility = model.VisibilityListed },
			want:   []testsupport.IndexCall{{Op: "add", IDs: []string{"p_iris"}}},
		},
		{
			name:   "downloads",
			mutate: func(p *model.Project) { p.Downloads = 10 },
			want:   []testsupport.IndexCall{{Op: "update", IDs: []string{"p_iris"}}},
		},
		{
			name:   "name only",
			mutate: func(p *model.Project) { p.Name = "Iris Shaders" },
		},
		{
			name:   "archived",
			mutate: func(p *model.Project) { p.Visibility = model.VisibilityArchived },
			want:   []testsupport.IndexCall{{Op: "remove", IDs: []string{"p_iris"}}},
		},
	}

	for _, step := range steps {
		f.index.Reset()
		step.mutate(&p)
		require.NoError(t, f.repos.Projects.Update(f.ctx, &p), step.name)
		if step.want == nil {
			assert.Empty(t, f.index.Calls(), step.name)
			continue
		}
		assert.Equal(t, step.want, f.index.Calls(), step.name)
	}

	f.index.Reset()
	_, err := f.repos.Projects.Delete(f.ctx, "p_iris")
	require.NoError(t, err)
	assert.Empty(t, f.index.Calls(), "archived projects are already out of the index")
}

func TestProjects_DeleteRemovesEverything(t *testing.T) {
	f := newFixture(t)

	_ = f.project(t, "p_sodium")
	_, err := f.repos.Projects.ListByUser(f.ctx, "u_bob")
	require.NoError(t, err)

	deleted, err := f.repos.Projects.Delete(f.ctx, "p_sodium")
	require.NoError(t, err)
	assert.Equal(t, "sodium", deleted.Slug)

	for _, key := range []string{
		"project-details:p_sodium",
		"project-details:sodium",
		"project-list-item:p_sodium",
		"project-list-item:sodium",
		"user-projects:u_bob",
		"user-projects:u_alice",
	} {
		assert.False(t, f.kv.Has(key), key)
	}
	assert.Equal(t, []testsupport.IndexCall{{Op: "remove", IDs: []string{"p_sodium"}}}, f.index.Calls())

	_, err = f.repos.Projects.Get(f.ctx, "p_sodium")
	assert.True(t, store.IsNotFound(err), "got %v", err)
}

func TestProjects_DocumentsSource(t *testing.T) {
	f := newFixture(t)

	docs, err := f.repos.Projects.Documents(f.ctx, []string{"p_sodium", "p_lithium"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"p_sodium", "p_lithium"}, projectIDs(docs))
}

func TestOrganizations_GetAndList(t *testing.T) {
	f := newFixture(t)

	org, err := f.repos.Organizations.GetBySlug(f.ctx, "caffeinemc")
	require.NoError(t, err)
	assert.Equal(t, "o_caffeine", org.ID)
	assert.Equal(t, "t_org", org.Team.ID)
	require.Len(t, org.Projects, 1)
	assert.Equal(t, "p_lithium", org.Projects[0].ID)

	orgs, err := f.repos.Organizations.ListByUser(f.ctx, "u_carol")
	require.NoError(t, err)
	require.Len(t, orgs, 1)
	assert.True(t, f.kv.Has("user-organizations:u_carol"))
}

func TestOrganizations_UpdateSlug(t *testing.T) {
	f := newFixture(t)

	org, err := f.repos.Organizations.Get(f.ctx, "o_caffeine")
	require.NoError(t, err)

	o := org.Organization
	o.Slug = "caffeine"
	require.NoError(t, f.repos.Organizations.Update(f.ctx, &o))

	assert.False(t, f.kv.Has("org-data:caffeinemc"))
	_, err = f.repos.Organizations.GetBySlug(f.ctx, "caffeinemc")
	assert.True(t, store.IsNotFound(err), "got %v", err)

	renamed, err := f.repos.Organizations.GetBySlug(f.ctx, "caffeine")
	require.NoError(t, err)
	assert.Equal(t, "o_caffeine", renamed.ID)
}

func TestOrganizations_DeleteRemovesTeam(t *testing.T) {
	f := newFixture(t)

	_, err := f.repos.Organizations.GetBySlug(f.ctx, "caffeinemc")
	require.NoError(t, err)
	orgs, err := f.repos.Organizations.ListByUser(f.ctx, "u_carol")
	require.NoError(t, err)
	require.Len(t, orgs, 1)

	_, err = f.repos.Organizations.Delete(f.ctx, "o_caffeine")
	require.NoError(t, err)

	for _, key := range []string{
		"org-data:o_caffeine",
		"org-data:caffeinemc",
		"team-data:t_org",
		"user-organizations:u_carol",
		"user-organizations:u_alice",
	} {
		assert.False(t, f.kv.Has(key), key)
	}

	orgs, err = f.repos.Organizations.ListByUser(f.ctx, "u_carol")
	require.NoError(t, err)
	assert.Empty(t, orgs)

	_, err = f.repos.Teams.Get(f.ctx, "t_org")
	assert.True(t, store.IsNotFound(err), "got %v", err)
}

func TestCollections_ListByUserTracksMutations(t *testing.T) {
	f := newFixture(t)

	first := model.Collection{UserID: "u_alice", Name: "Performance", Visibility: "public"}
	require.NoError(t, f.repos.Collections.Create(f.ctx, &first))

	list, err := f.repos.Collections.ListByUser(f.ctx, "u_alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, f.kv.Has("user-collections:u_alice"))

	second := model.Collection{UserID: "u_alice", Name: "Shaders", Visibility: "private"}
	require.NoError(t, f.repos.Collections.Create(f.ctx, &second))

	list, err = f.repos.Collections.ListByUser(f.ctx, "u_alice")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	first.Name = "Perf"
	require.NoError(t, f.repos.Collections.Update(f.ctx, &first))
	got, err := f.repos.Collections.Get(f.ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Perf", got.Name)

	_, err = f.repos.Collections.Delete(f.ctx, second.ID)
	require.NoError(t, err)

	list, err = f.repos.Collections.ListByUser(f.ctx, "u_alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, first.ID, list[0].ID)
}

func TestFiles_WriteThrough(t *testing.T) {
	f := newFixture(t)

	icon := model.File{Name: "icon.png", Size: 2048, URL: "https://cdn.example.com/icon.png"}
	require.NoError(t, f.repos.Files.Create(f.ctx, &icon))
	assert.True(t, f.kv.Has("file-data:"+icon.ID))

	batch := []model.File{
		{Name: "a.jar", Size: 10, URL: "https://cdn.example.com/a.jar"},
		{Name: "b.jar", Size: 20, URL: "https://cdn.example.com/b.jar"},
	}
	require.NoError(t, f.repos.Files.CreateMany(f.ctx, batch))
	ids := []string{batch[0].ID, batch[1].ID}
	for _, id := range ids {
		require.NotEmpty(t, id)
		assert.True(t, f.kv.Has("file-data:"+id))
	}

	all, err := f.repos.Files.GetMany(f.ctx, append(ids, icon.ID))
	require.NoError(t, err)
	assert.Len(t, all, 3)

	deleted, err := f.repos.Files.DeleteMany(f.ctx, ids)
	require.NoError(t, err)
	assert.Len(t, deleted, 2)
	for _, id := range ids {
		assert.False(t, f.kv.Has("file-data:"+id))
	}

	_, err = f.repos.Files.Get(f.ctx, ids[0])
	assert.True(t, store.IsNotFound(err), "got %v", err)
}

func TestCascadeFailureIsLoggedNotReturned(t *testing.T) {
	f := newFixture(t)

	p := f.project(t, "p_sodium")
	f.kv.Fail("delete", "project-details:", errors.New("connection refused"))

	p.Downloads = 5000
	require.NoError(t, f.repos.Projects.Update(f.ctx, &p))

	entries := f.logs.FilterMessage("cascade incomplete, stale entries expire with their ttl").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "project.update", entries[0].ContextMap()["operation"])
	assert.Equal(t, []testsupport.IndexCall{{Op: "update", IDs: []string{"p_sodium"}}}, f.index.Calls())
}

func TestProjects_TeamChangeDropsMemberLists(t *testing.T) {
	f := newFixture(t)

	bob, err := f.repos.Projects.ListByUser(f.ctx, "u_bob")
	require.NoError(t, err)
	require.Equal(t, []string{"p_sodium"}, projectIDs(bob))
	carol, err := f.repos.Projects.ListByUser(f.ctx, "u_carol")
	require.NoError(t, err)
	require.Equal(t, []string{"p_lithium"}, projectIDs(carol))
	f.kv.ResetCalls()

	p := f.project(t, "p_sodium")
	p.TeamID = "t_org"
	p.OrganizationID = "o_caffeine"
	require.NoError(t, f.repos.Projects.Update(f.ctx, &p))

	assert.Subset(t, f.kv.DeletedKeys(), []string{
		"user-projects:u_bob",
		"user-projects:u_carol",
		"user-projects:u_alice",
		"org-data:o_caffeine",
	})

	bob, err = f.repos.Projects.ListByUser(f.ctx, "u_bob")
	require.NoError(t, err)
	assert.Empty(t, bob)

	carol, err = f.repos.Projects.ListByUser(f.ctx, "u_carol")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"p_sodium", "p_lithium"}, projectIDs(carol))
}

func TestProjects_ListItemReads(t *testing.T) {
	f := newFixture(t)

	_, ok := f.repos.Projects.PeekListItem(f.ctx, "p_sodium", "")
	assert.False(t, ok)
	_, ok = f.repos.Projects.PeekDetails(f.ctx, "", "sodium")
	assert.False(t, ok)
	assert.False(t, f.kv.Has("project-list-item:p_sodium"), "peeks never populate the cache")

	item, err := f.repos.Projects.GetListItem(f.ctx, "p_sodium")
	require.NoError(t, err)
	assert.Equal(t, "sodium", item.Slug)
	assert.Equal(t, "t_sodium", item.Team.ID)
	assert.Nil(t, item.Organization)
	assert.True(t, f.kv.Has("project-list-item:sodium"))

	bySlug, err := f.repos.Projects.GetListItemBySlug(f.ctx, "LITHIUM")
	require.NoError(t, err)
	assert.Equal(t, "p_lithium", bySlug.ID)
	require.NotNil(t, bySlug.Organization)
	assert.Equal(t, "o_caffeine", bySlug.Organization.ID)

	peeked, ok := f.repos.Projects.PeekListItem(f.ctx, "p_sodium", "")
	require.True(t, ok)
	assert.EqualValues(t, 1200, peeked.Downloads)
	peeked, ok = f.repos.Projects.PeekListItem(f.ctx, "", "Lithium")
	require.True(t, ok)
	assert.Equal(t, "p_lithium", peeked.ID)

	_, ok = f.repos.Projects.PeekDetails(f.ctx, "p_sodium", "")
	assert.False(t, ok, "list item reads leave the details view alone")
	_ = f.project(t, "p_sodium")
	details, ok := f.repos.Projects.PeekDetails(f.ctx, "", "sodium")
	require.True(t, ok)
	assert.Equal(t, "p_sodium", details.ID)
}

func TestProjects_ListItemMissingTeam(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.repos.Projects.Create(f.ctx, &model.Project{
		ID:         "p_ghost",
		TeamID:     "t_missing",
		Name:       "Ghost",
		Slug:       "ghost",
		Status:     model.StatusPublished,
		Visibility: model.VisibilityListed,
	}))

	_, err := f.repos.Projects.GetListItem(f.ctx, "p_ghost")
	assert.True(t, store.IsNotFound(err), "got %v", err)

	_, err = f.repos.Projects.GetListItemBySlug(f.ctx, "nothing-here")
	assert.True(t, store.IsNotFound(err), "got %v", err)
}

func TestProjects_UpdateMany(t *testing.T) {
	f := newFixture(t)

	sodium := f.project(t, "p_sodium")
	lithium := f.project(t, "p_lithium")
	f.kv.ResetCalls()

	sodium.Slug = "sodium-next"
	lithium.Downloads = 50
	require.NoError(t, f.repos.Projects.UpdateMany(f.ctx, []model.Project{sodium, lithium}))

	assert.Subset(t, f.kv.DeletedKeys(), []string{
		"project-details:p_sodium",
		"project-details:sodium",
		"project-details:sodium-next",
		"project-details:p_lithium",
		"project-details:lithium",
	})
	assert.Equal(t, []testsupport.IndexCall{{Op: "update", IDs: []string{"p_lithium"}}}, f.index.Calls())

	renamed, err := f.repos.Projects.GetBySlug(f.ctx, "sodium-next")
	require.NoError(t, err)
	assert.Equal(t, "p_sodium", renamed.ID)
	assert.EqualValues(t, 50, f.project(t, "p_lithium").Downloads)
}

func TestProjects_UpdateManyUnknownID(t *testing.T) {
	f := newFixture(t)

	sodium := f.project(t, "p_sodium")
	sodium.Downloads = 9999
	ghost := sodium
	ghost.ID = "p_unknown"
	ghost.Slug = "unknown"

	err := f.repos.Projects.UpdateMany(f.ctx, []model.Project{sodium, ghost})
	assert.True(t, store.IsNotFound(err), "got %v", err)
	assert.Empty(t, f.kv.DeletedKeys())
	assert.Empty(t, f.index.Calls())

	_, err = f.kv.Delete(f.ctx, "project-details:p_sodium", "project-details:sodium")
	require.NoError(t, err)
	assert.EqualValues(t, 1200, f.project(t, "p_sodium").Downloads, "nothing was written")
}

func TestVersions_BulkDeletes(t *testing.T) {
	f := newFixture(t)

	versions := []model.Version{
		{ProjectID: "p_sodium", Title: "Sodium 0.4", VersionNumber: "0.4.0", Slug: "0-4-0", ReleaseChannel: model.ChannelRelease, DatePublished: joined},
		{ProjectID: "p_sodium", Title: "Sodium 0.5", VersionNumber: "0.5.0", Slug: "0-5-0", ReleaseChannel: model.ChannelRelease, DatePublished: joined.Add(time.Hour)},
		{ProjectID: "p_lithium", Title: "Lithium 0.1", VersionNumber: "0.1.0", Slug: "0-1-0", ReleaseChannel: model.ChannelBeta, DatePublished: joined},
	}
	for i := range versions {
		require.NoError(t, f.repos.Versions.Create(f.ctx, &versions[i]))
	}
	_, err := f.repos.Versions.ForProjects(f.ctx, []string{"p_sodium", "p_lithium"})
	require.NoError(t, err)
	_ = f.project(t, "p_sodium")
	f.kv.ResetCalls()

	deleted, err := f.repos.Versions.DeleteMany(f.ctx, []string{versions[0].ID, versions[2].ID, "v_unknown"})
	require.NoError(t, err)
	assert.Len(t, deleted, 2)
	for _, key := range []string{
		"project-versions:p_sodium",
		"project-versions:sodium",
		"project-versions:p_lithium",
		"project-versions:lithium",
		"project-details:p_sodium",
		"project-details:sodium",
	} {
		assert.False(t, f.kv.Has(key), key)
	}

	list, err := f.repos.Versions.ForProject(f.ctx, "p_sodium")
	require.NoError(t, err)
	require.Len(t, list.Versions, 1)
	assert.Equal(t, versions[1].ID, list.Versions[0].ID)

	deleted, err = f.repos.Versions.DeleteByProject(f.ctx, "p_sodium")
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.False(t, f.kv.Has("project-versions:sodium"))

	list, err = f.repos.Versions.ForProjectSlug(f.ctx, "sodium")
	require.NoError(t, err)
	assert.Empty(t, list.Versions)

	deleted, err = f.repos.Versions.DeleteByProject(f.ctx, "p_sodium")
	require.NoError(t, err)
	assert.Empty(t, deleted)
}

func TestCollections_DeleteByUser(t *testing.T) {
	f := newFixture(t)

	owned := []model.Collection{
		{UserID: "u_alice", Name: "Performance", Visibility: "public"},
		{UserID: "u_alice", Name: "Shaders", Visibility: "private"},
	}
	for i := range owned {
		require.NoError(t, f.repos.Collections.Create(f.ctx, &owned[i]))
		_, err := f.repos.Collections.Get(f.ctx, owned[i].ID)
		require.NoError(t, err)
	}
	other := model.Collection{UserID: "u_bob", Name: "Utility", Visibility: "public"}
	require.NoError(t, f.repos.Collections.Create(f.ctx, &other))

	list, err := f.repos.Collections.ListByUser(f.ctx, "u_alice")
	require.NoError(t, err)
	require.Len(t, list, 2)

	deleted, err := f.repos.Collections.DeleteByUser(f.ctx, "u_alice")
	require.NoError(t, err)
	assert.Len(t, deleted, 2)

	for _, key := range []string{
		"collection-data:" + owned[0].ID,
		"collection-data:" + owned[1].ID,
		"user-collections:u_alice",
	} {
		assert.False(t, f.kv.Has(key), key)
	}

	list, err = f.repos.Collections.ListByUser(f.ctx, "u_alice")
	require.NoError(t, err)
	assert.Empty(t, list)

	kept, err := f.repos.Collections.ListByUser(f.ctx, "u_bob")
	require.NoError(t, err)
	require.Len(t, kept, 1)
	assert.Equal(t, other.ID, kept[0].ID)
}

func TestTeams_DeleteCascadesToMembers(t *testing.T) {
	f := newFixture(t)

	_ = f.project(t, "p_sodium")
	for _, user := range []string{"u_alice", "u_bob"} {
		_, err := f.repos.Projects.ListByUser(f.ctx, user)
		require.NoError(t, err)
	}
	f.kv.ResetCalls()

	deleted, err := f.repos.Teams.Delete(f.ctx, "t_sodium")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"u_alice", "u_bob"}, deleted.MemberIDs())

	assert.Subset(t, f.kv.DeletedKeys(), []string{
		"team-data:t_sodium",
		"project-details:p_sodium",
		"project-details:sodium",
		"user-projects:u_alice",
		"user-projects:u_bob",
		"user-organizations:u_bob",
	})

	listed, err := f.repos.Projects.ListByUser(f.ctx, "u_bob")
	require.NoError(t, err)
	assert.Empty(t, listed)
}
