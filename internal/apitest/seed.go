package apitest

import "github.com/and161185/vidvote/internal/model"

// Demo account created by SeedDemo.
const (
	DemoEmail    = "demo@vidvote.local"
	DemoPassword = "demo"
)

// SeedDemo adds a demo account, two private videos and a few public ones
// spread over cities so rankings and city filtering have data.
func (b *Backend) SeedDemo() {
	b.AddUser(model.User{ID: "1", FirstName: "Demo", LastName: "User", Email: DemoEmail, City: "Bogotá", Country: "Colombia"}, DemoPassword)

	cdn := "https://cdn.vidvote.local/p/1.mp4"
	b.AddVideo(model.Video{ID: "1", Title: "Tiro libre", Status: "processed", ProcessedURL: &cdn})
	b.AddVideo(model.Video{ID: "2", Title: "Entrenamiento", Status: "processing"})

	bog, med, cali := "Bogotá", "Medellín", "Cali"
	b.SetPublic([]model.PublicVideo{
		{ID: "50", Title: "Chilena", Votes: 12, City: &bog},
		{ID: "51", Title: "Gambeta", Votes: 30, City: &med},
		{ID: "52", Title: "Cabezazo", Votes: 7, City: &cali},
		{ID: "53", Title: "Volea", Votes: 12, City: &bog},
	})
}
