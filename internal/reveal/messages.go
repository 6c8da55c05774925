package reveal

import "math/rand"

// Catalog is the fixed set of congratulation lines shown with each winner.
var Catalog = []string{
	"Congratulations, you're a winner!",
	"The odds were in your favor!",
	"Lady luck picked you today!",
	"Your comment paid off!",
	"Winner winner, giveaway dinner!",
	"Fortune smiles on you!",
	"And the prize goes to you!",
	"You made the cut!",
}

// Messages returns n messages drawn from a uniformly shuffled copy of
// catalog. When n exceeds the catalog size the shuffled order repeats.
func Messages(rng *rand.Rand, catalog []string, n int) []string {
	if len(catalog) == 0 || n <= 0 {
		return nil
	}

	pool := append([]string(nil), catalog...)
	rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})

	out := make([]string, n)
	for i := range out {
		out[i] = pool[i%len(pool)]
	}
	return out
}
