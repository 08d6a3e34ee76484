package generator_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/entalk/internal/adapters/generator"
	"github.com/okian/entalk/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func chatReply(content string) string {
	body, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
	return string(body)
}

func serve(t *testing.T, handler http.HandlerFunc) *generator.OpenAI {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return generator.NewOpenAI("test-key",
		generator.WithBaseURL(srv.URL),
		generator.WithInitialBackoff(time.Millisecond),
	)
}

func TestTemplate(t *testing.T) {
	Convey("Given the template backend", t, func() {
		tpl := generator.NewTemplate()

		Convey("When asked for more drafts than labels", func() {
			req := generator.Request{
				Categories: []model.Category{model.CategoryCultural, model.CategoryOpinion},
				Phases:     []model.Phase{model.PhaseChallenge},
				Count:      12,
			}
			drafts, err := tpl.Generate(context.Background(), req)

			Convey("Then it should return exactly the requested count", func() {
				So(err, ShouldBeNil)
				So(drafts, ShouldHaveLength, 12)
			})

			Convey("And labels should cycle round-robin", func() {
				So(drafts[0].Category, ShouldEqual, model.CategoryCultural)
				So(drafts[1].Category, ShouldEqual, model.CategoryOpinion)
				So(drafts[2].Category, ShouldEqual, model.CategoryCultural)
				for _, d := range drafts {
					So(d.Phase, ShouldEqual, model.PhaseChallenge)
					So(d.IsNovelty, ShouldBeTrue)
				}
			})

			Convey("And texts should wrap after ten templates", func() {
				So(drafts[0].Text, ShouldEqual, "What's your favorite aspect of cultural experiences?")
				So(drafts[1].Text, ShouldEqual, "How do you approach challenge conversations with new people?")
				So(drafts[10].Text, ShouldEqual, drafts[0].Text)
			})
		})

		Convey("When no labels are given", func() {
			drafts := tpl.Render(generator.Request{Count: 6})

			Convey("Then the full enumerations should be used", func() {
				for i, c := range model.Categories() {
					So(drafts[i].Category, ShouldEqual, c)
				}
			})
		})

		Convey("When a topic is given", func() {
			drafts := tpl.Render(generator.Request{Count: 3, Topic: "street food"})

			Convey("Then every text should mention the topic", func() {
				for _, d := range drafts {
					So(d.Text, ShouldContainSubstring, "street food")
				}
			})
		})

		Convey("When the count is zero", func() {
			So(tpl.Render(generator.Request{Count: 0}), ShouldBeEmpty)
		})
	})
}

func TestOpenAI_Generate(t *testing.T) {
	ctx := context.Background()
	req := generator.Request{
		Categories: []model.Category{model.CategoryHypothetical, model.CategoryReflective},
		Phases:     []model.Phase{model.PhaseReflective},
		Count:      2,
	}

	Convey("Given a server answering with the structured object", t, func() {
		var (
			got        map[string]any
			path, auth string
		)
		client := serve(t, func(w http.ResponseWriter, r *http.Request) {
			path, auth = r.URL.Path, r.Header.Get("Authorization")
			_ = json.NewDecoder(r.Body).Decode(&got)
			fmt.Fprint(w, chatReply(`{"questions":[
				{"text":"What if you woke up fluent in every language?","category":"Hypothetical","phase":"Reflective"},
				{"text":"What habit shaped you most?","category":"Sports","phase":"Warm-Up"},
				{"text":"One too many?","category":"Reflective","phase":"Reflective"}]}`))
		})

		drafts, err := client.Generate(ctx, req)

		Convey("Then drafts should be truncated to the count", func() {
			So(err, ShouldBeNil)
			So(drafts, ShouldHaveLength, 2)
			So(drafts[0].Category, ShouldEqual, model.CategoryHypothetical)
			So(drafts[0].IsNovelty, ShouldBeFalse)
		})

		Convey("And unknown labels should be reassigned from the request", func() {
			So(drafts[1].Category, ShouldEqual, model.CategoryReflective)
			So(drafts[1].Phase, ShouldEqual, model.PhaseReflective)
		})

		Convey("And the prompt should name the requested labels", func() {
			So(path, ShouldEqual, "/chat/completions")
			So(auth, ShouldEqual, "Bearer test-key")
			So(got["model"], ShouldEqual, "gpt-3.5-turbo")
			raw, _ := json.Marshal(got["messages"])
			So(string(raw), ShouldContainSubstring, "Hypothetical")
			So(string(raw), ShouldContainSubstring, "Generate 2 engaging")
		})
	})

	Convey("Given a server answering with a bare string array", t, func() {
		client := serve(t, func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, chatReply("```json\n[\"Where would you live?\", \"Who inspires you?\"]\n```"))
		})

		drafts, err := client.Generate(ctx, req)

		Convey("Then every text should get labels round-robin", func() {
			So(err, ShouldBeNil)
			So(drafts, ShouldHaveLength, 2)
			So(drafts[0].Category, ShouldEqual, model.CategoryHypothetical)
			So(drafts[1].Category, ShouldEqual, model.CategoryReflective)
		})
	})

	Convey("Given a server answering with a numbered list", t, func() {
		client := serve(t, func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, chatReply("Here you go:\n1. \"What scares you?\"\n2) Which book changed you?\nThanks"))
		})

		drafts, err := client.Generate(ctx, req)

		Convey("Then question lines should be cleaned up", func() {
			So(err, ShouldBeNil)
			So(drafts[0].Text, ShouldEqual, "What scares you?")
			So(drafts[1].Text, ShouldEqual, "Which book changed you?")
		})
	})

	Convey("Given a server that rate limits once", t, func() {
		var calls atomic.Int32
		client := serve(t, func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			fmt.Fprint(w, chatReply(`["Is this a retry?"]`))
		})

		drafts, err := client.Generate(ctx, req)

		Convey("Then the request should be retried", func() {
			So(err, ShouldBeNil)
			So(drafts, ShouldHaveLength, 1)
			So(calls.Load(), ShouldEqual, 2)
		})
	})

	Convey("Given a server that always rate limits", t, func() {
		client := serve(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})

		_, err := client.Generate(ctx, req)

		Convey("Then a generator error should wrap the rate limit", func() {
			var genErr *generator.Error
			So(errors.As(err, &genErr), ShouldBeTrue)
			So(genErr.Backend, ShouldEqual, generator.BackendOpenAI)
			So(errors.Is(err, generator.ErrRateLimited), ShouldBeTrue)
		})
	})

	Convey("Given a server failing with 401", t, func() {
		var calls atomic.Int32
		client := serve(t, func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			http.Error(w, "bad key", http.StatusUnauthorized)
		})

		_, err := client.Generate(ctx, req)

		Convey("Then it should fail without retrying", func() {
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "401")
			So(calls.Load(), ShouldEqual, 1)
		})
	})

	Convey("Given a server answering with prose only", t, func() {
		client := serve(t, func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, chatReply("I cannot help with that."))
		})

		_, err := client.Generate(ctx, req)

		Convey("Then it should report an empty response", func() {
			So(errors.Is(err, generator.ErrEmptyResponse), ShouldBeTrue)
		})
	})

	Convey("Given a server answering with lower-case labels", t, func() {
		client := serve(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, chatReply(`{"questions":[
				{"text":"Should cities ban cars downtown?","category":"opinion","phase":"challenge"},
				{"text":"What would you ask your future self?","category":" HYPOTHETICAL ","phase":"reflective"}]}`))
		})

		drafts, err := client.Generate(ctx, generator.Request{Count: 2})

		Convey("Then the canonical labels should be kept", func() {
			So(err, ShouldBeNil)
			So(drafts, ShouldHaveLength, 2)
			So(drafts[0].Category, ShouldEqual, model.CategoryOpinion)
			So(drafts[0].Phase, ShouldEqual, model.PhaseChallenge)
			So(drafts[1].Category, ShouldEqual, model.CategoryHypothetical)
			So(drafts[1].Phase, ShouldEqual, model.PhaseReflective)
		})
	})

	Convey("Given a topical novelty request", t, func() {
		var got map[string]any
		client := serve(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&got)
			fmt.Fprint(w, chatReply(`["If a river could vote, what would it want?"]`))
		})

		drafts, err := client.Generate(ctx, generator.Request{Count: 1, Topic: "rivers", Novelty: true})

		Convey("Then the prompt should carry the topic and the drafts should be novelty", func() {
			So(err, ShouldBeNil)
			So(drafts, ShouldHaveLength, 1)
			So(drafts[0].IsNovelty, ShouldBeTrue)
			raw, _ := json.Marshal(got["messages"])
			So(string(raw), ShouldContainSubstring, "about rivers")
			So(string(raw), ShouldContainSubstring, "unusual")
		})
	})

	Convey("Given a slow server and a short deadline", t, func() {
		client := serve(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		})

		tctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		_, err := client.Generate(tctx, req)

		Convey("Then the call should be cancelled", func() {
			So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
		})
	})
}

func TestNew(t *testing.T) {
	Convey("Given backend names", t, func() {
		Convey("Then template should need no key", func() {
			g, err := generator.New(generator.BackendTemplate, "")
			So(err, ShouldBeNil)
			So(g.Name(), ShouldEqual, generator.BackendTemplate)
		})

		Convey("Then openai without a key should be rejected", func() {
			_, err := generator.New(generator.BackendOpenAI, "")
			So(errors.Is(err, generator.ErrMissingAPIKey), ShouldBeTrue)
		})

		Convey("Then unknown backends should be rejected", func() {
			_, err := generator.New("bard", "k")
			So(errors.Is(err, generator.ErrUnknownBackend), ShouldBeTrue)
			So(strings.Contains(err.Error(), "bard"), ShouldBeTrue)
		})
	})
}
