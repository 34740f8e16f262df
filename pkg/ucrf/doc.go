// Package ucrf forecasts the next likely issue and service cost of a used
// vehicle from its make, model, year and mileage.
//
// Quick start:
//
//	f, err := ucrf.New(ucrf.WithModelDir("models/"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer f.Close()
//
//	fc, _ := f.Forecast("Toyota", "Camry", 2015, 50000)
//	fmt.Println(fc.PredictedIssue, fc.EstimatedCost)
//
// When the trained models are absent or cannot be used, Forecast returns a
// placeholder ("unknown", likelihood 0.1) rather than an error. Health
// reports which case applies.
//
// A Forecaster is safe for concurrent use. Create once, reuse across
// requests.
package ucrf
