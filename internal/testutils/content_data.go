package testutils

import "strings"

// Canned answers to "What are the main benefits of renewable energy?" used by
// ranking tests. Solar and Wind agree with each other, Offtopic does not, and
// Terse is too short to score well on length.
const (
	RenewableQuery = "What are the main benefits of renewable energy?"

	RenewableSolar = "Renewable energy reduces greenhouse gas emissions, lowers long term " +
		"energy costs and improves energy security. Solar and wind power create local jobs, " +
		"reduce air pollution and make countries less dependent on imported fossil fuels. " +
		"The main benefits of renewable energy are cleaner air, a stable climate and " +
		"predictable prices for households and businesses."

	RenewableWind = "The benefits of renewable energy include lower emissions, cleaner air " +
		"and long term savings on energy costs. Wind and solar power are abundant, create " +
		"jobs and strengthen energy security by reducing reliance on imported fossil fuels, " +
		"which also protects households from volatile prices."

	RenewableOfftopic = "Cats are small domesticated carnivores that have lived alongside " +
		"humans for thousands of years. They sleep for most of the day and are known for " +
		"their independence, agility and sharp retractable claws."

	RenewableTerse = "Cleaner energy."
)

// Words returns a text of n repetitions of word separated by spaces.
func Words(word string, n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSpace(strings.Repeat(word+" ", n))
}
