package models

import "time"

// BillStatement aggregates one farmer's collections over one bill period.
type BillStatement struct {
	ID          string    `bson:"_id" json:"id"`
	FarmerID    string    `bson:"farmerId" json:"farmerId"`
	FarmerName  string    `bson:"farmerName,omitempty" json:"farmerName,omitempty"`
	PeriodID    string    `bson:"periodId" json:"periodId"`
	FromDate    string    `bson:"fromDate" json:"fromDate"`
	ToDate      string    `bson:"toDate" json:"toDate"`
	Entries     int       `bson:"entries" json:"entries"`
	Liters      float64   `bson:"liters" json:"liters"`
	KgFat       float64   `bson:"kgFat" json:"kgFat"`
	KgSnf       float64   `bson:"kgSnf" json:"kgSnf"`
	Amount      float64   `bson:"amount" json:"amount"`
	BonusAmount float64   `bson:"bonusAmount" json:"bonusAmount"`
	AverageFat  float64   `bson:"averageFat" json:"averageFat"`
	AverageSnf  float64   `bson:"averageSnf" json:"averageSnf"`
	AverageRate float64   `bson:"averageRate" json:"averageRate"`
	Locked      bool      `bson:"locked" json:"locked"`
	GeneratedAt time.Time `bson:"generatedAt" json:"generatedAt"`
}

// StatementID is the stable identifier of a farmer's statement for a period.
func StatementID(periodID, farmerID string) string {
	return periodID + ":" + farmerID
}
