package api

import "github.com/go-chi/chi/v5"

// RegisterRoutes mounts the task and post endpoints on r.
func RegisterRoutes(r chi.Router, taskHandler *TaskHandler, postHandler *PostHandler) {
	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", taskHandler.ListTasks)
		r.Get("/{id}", taskHandler.GetTask)
		r.Get("/agent/{agentID}", taskHandler.ListTasksByAgent)
		r.Get("/ws/{clientID}", taskHandler.Stream)
	})

	r.Post("/subreddits/{name}/scrape", postHandler.ScrapeSubreddit)

	r.Route("/posts/{id}", func(r chi.Router) {
		r.Get("/", postHandler.GetPost)
		r.Post("/generate", postHandler.GeneratePost)
		r.Post("/publish", postHandler.PublishPost)
		r.Get("/comments", postHandler.ListPostComments)
	})

	r.Post("/comments/{id}/reply", postHandler.ReplyToComment)

	r.Get("/leads/{leadID}/posts", postHandler.ListLeadPosts)
}
