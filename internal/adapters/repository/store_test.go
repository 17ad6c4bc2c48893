package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	repository "github.com/mlunde/adventpace/internal/adapters/repository"
	"github.com/mlunde/adventpace/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func openStores(t *testing.T) map[string]repository.Store {
	t.Helper()
	bs, err := repository.NewBadgerStore("", repository.WithInMemory())
	if err != nil {
		t.Fatalf("open badger store: %v", err)
	}
	t.Cleanup(func() { _ = bs.Close() })
	ms := repository.NewMemoryStore()
	t.Cleanup(func() { _ = ms.Close() })
	return map[string]repository.Store{"memory": ms, "badger": bs}
}

func TestStoreUsers(t *testing.T) {
	for name, store := range openStores(t) {
		Convey("Given a "+name+" store with a user", t, func() {
			ctx := context.Background()
			u := model.User{
				ID:          "u1",
				DisplayName: "Kari",
				Keyword:     "luke",
				Log:         map[string]model.LogEntry{},
				Credential:  &model.Credential{AccessToken: "at", RefreshToken: "rt", ExpiresAt: 100, AthleteID: 999},
			}
			So(store.PutUser(ctx, u), ShouldBeNil)

			Convey("Then GetUser round-trips the document", func() {
				got, err := store.GetUser(ctx, "u1")
				So(err, ShouldBeNil)
				So(got.DisplayName, ShouldEqual, "Kari")
				So(got.Credential.AthleteID, ShouldEqual, 999)
			})

			Convey("Then an unknown user is ErrNotFound", func() {
				_, err := store.GetUser(ctx, "nope")
				So(err, ShouldEqual, repository.ErrNotFound)
			})

			Convey("Then the athlete index resolves the owner", func() {
				got, err := store.UserByAthlete(ctx, 999)
				So(err, ShouldBeNil)
				So(got.ID, ShouldEqual, "u1")

				_, err = store.UserByAthlete(ctx, 42)
				So(err, ShouldEqual, repository.ErrNotFound)
			})

			Convey("When the user disconnects", func() {
				So(store.UpdateUser(ctx, "u1", func(u *model.User) error {
					u.Credential = nil
					return nil
				}), ShouldBeNil)

				Convey("Then the athlete lookup stops matching", func() {
					_, err := store.UserByAthlete(ctx, 999)
					So(err, ShouldEqual, repository.ErrNotFound)
				})
			})

			Convey("When UpdateUser mutates the log", func() {
				So(store.UpdateUser(ctx, "u1", func(u *model.User) error {
					if u.Log == nil {
						u.Log = map[string]model.LogEntry{}
					}
					u.Log["2025-12-03"] = model.LogEntry{Km: 4.2, Time: time.Unix(1000, 0).UTC()}
					return nil
				}), ShouldBeNil)

				got, err := store.GetUser(ctx, "u1")
				So(err, ShouldBeNil)
				So(got.Log["2025-12-03"].Km, ShouldEqual, 4.2)
			})

			Convey("Then UpdateUser on an unknown id is ErrNotFound", func() {
				err := store.UpdateUser(ctx, "nope", func(*model.User) error { return nil })
				So(err, ShouldEqual, repository.ErrNotFound)
			})
		})
	}
}

func TestStorePool(t *testing.T) {
	for _, name := range []string{"memory", "badger"} {
		Convey("Given a "+name+" store", t, func() {
			store := openStores(t)[name]
			ctx := context.Background()

			Convey("Then the pool starts absent", func() {
				_, err := store.GetPool(ctx)
				So(err, ShouldEqual, repository.ErrNotFound)
			})

			Convey("When the pool is initialized", func() {
				So(store.InitPool(ctx, []int{3, 5, 5, 8}), ShouldBeNil)
				p, err := store.GetPool(ctx)
				So(err, ShouldBeNil)
				So(p.Original, ShouldResemble, []int{3, 5, 5, 8})
				So(p.Remaining, ShouldResemble, []int{3, 5, 5, 8})

				Convey("Then a second initialization is a no-op", func() {
					So(store.InitPool(ctx, []int{1, 2}), ShouldBeNil)
					p, err := store.GetPool(ctx)
					So(err, ShouldBeNil)
					So(p.Original, ShouldResemble, []int{3, 5, 5, 8})
				})

				Convey("When a draw is committed", func() {
					won, err := store.CommitDraw(ctx, "2025-12-02", 5, []int{3, 5, 8})
					So(err, ShouldBeNil)
					So(won, ShouldEqual, 5)

					Convey("Then the selection and remaining both persist", func() {
						km, found, err := store.Selection(ctx, "2025-12-02")
						So(err, ShouldBeNil)
						So(found, ShouldBeTrue)
						So(km, ShouldEqual, 5)

						p, err := store.GetPool(ctx)
						So(err, ShouldBeNil)
						So(p.Remaining, ShouldResemble, []int{3, 5, 8})
					})

					Convey("Then a losing draw observes the winner", func() {
						won, err := store.CommitDraw(ctx, "2025-12-02", 8, []int{3, 5})
						So(err, ShouldBeNil)
						So(won, ShouldEqual, 5)

						p, err := store.GetPool(ctx)
						So(err, ShouldBeNil)
						So(p.Remaining, ShouldResemble, []int{3, 5, 8})
					})
				})
			})
		})
	}
}

func TestStoreCommitDrawRace(t *testing.T) {
	for name, store := range openStores(t) {
		Convey("Given concurrent first draws on a "+name+" store", t, func() {
			ctx := context.Background()
			So(store.InitPool(ctx, []int{3, 5, 8, 10}), ShouldBeNil)

			const workers = 16
			results := make([]int, workers)
			var wg sync.WaitGroup
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					won, err := store.CommitDraw(ctx, "2025-12-09", 3+i, []int{5, 8, 10})
					if err != nil {
						results[i] = -1
						return
					}
					results[i] = won
				}(i)
			}
			wg.Wait()

			Convey("Then every caller converges on one value", func() {
				first := results[0]
				So(first, ShouldBeGreaterThanOrEqualTo, 0)
				for _, r := range results {
					So(r, ShouldEqual, first)
				}
				km, found, err := store.Selection(ctx, "2025-12-09")
				So(err, ShouldBeNil)
				So(found, ShouldBeTrue)
				So(km, ShouldEqual, first)
			})
		})
	}
}

func TestStoreStandings(t *testing.T) {
	for name, store := range openStores(t) {
		Convey("Given a "+name+" store with logged users", t, func() {
			ctx := context.Background()
			mk := func(id, name string, kms ...float64) model.User {
				log := map[string]model.LogEntry{}
				for i, km := range kms {
					log[time.Date(2025, 12, i+1, 0, 0, 0, 0, time.UTC).Format(model.DateKey)] = model.LogEntry{Km: km, Time: time.Now()}
				}
				return model.User{ID: id, DisplayName: name, Log: log}
			}
			So(store.PutUser(ctx, mk("u1", "Kari", 5, 3)), ShouldBeNil)
			So(store.PutUser(ctx, mk("u2", "Ola", 10)), ShouldBeNil)
			So(store.PutUser(ctx, mk("u3", "Per", 2)), ShouldBeNil)

			Convey("Then standings are ordered by total km", func() {
				rows, err := store.Standings(ctx, 0)
				So(err, ShouldBeNil)
				So(len(rows), ShouldEqual, 3)
				So(rows[0].UserID, ShouldEqual, "u2")
				So(rows[0].Rank, ShouldEqual, 1)
				So(rows[0].TotalKm, ShouldEqual, 10)
				So(rows[1].UserID, ShouldEqual, "u1")
				So(rows[2].UserID, ShouldEqual, "u3")
			})

			Convey("Then the limit caps the rows", func() {
				rows, err := store.Standings(ctx, 2)
				So(err, ShouldBeNil)
				So(len(rows), ShouldEqual, 2)
			})
		})
	}
}
