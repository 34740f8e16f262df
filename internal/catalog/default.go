package catalog

// Default returns the built-in catalog used when no file is configured.
func Default() *Catalog {
	return &Catalog{Makes: []Make{
		{Name: "Chevrolet", Models: []string{"Malibu", "Silverado", "Equinox", "Cruze"}},
		{Name: "Ford", Models: []string{"F150", "Focus", "Escape", "Explorer", "Fusion"}},
		{Name: "Honda", Models: []string{"Civic", "Accord", "CR-V", "Pilot"}},
		{Name: "Hyundai", Models: []string{"Elantra", "Sonata", "Tucson"}},
		{Name: "Kia", Models: []string{"Rio", "Optima", "Sorento"}},
		{Name: "Nissan", Models: []string{"Altima", "Sentra", "Rogue"}},
		{Name: "Tesla", Models: []string{"Model 3", "Model S", "Model Y"}},
		{Name: "Toyota", Models: []string{"Camry", "Corolla", "RAV4", "Tacoma", "Prius"}},
	}}
}
