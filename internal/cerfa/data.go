package cerfa

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Text is a form text value. It decodes from a JSON string or a JSON number;
// numbers keep their literal JSON spelling so nothing is reformatted.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*t = ""
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("text value must be a string or a number: %s", b)
		}
		*t = Text(n.String())
		return nil
	}
}

// Sex is the apprentice's sex as printed on the form: "M", "F" or empty.
type Sex string

const (
	SexMale   Sex = "M"
	SexFemale Sex = "F"
)

// TriState projects onto the M (Yes) and F (No) boxes.
func (s Sex) TriState() (TriState, bool) {
	switch s {
	case "":
		return Unset, true
	case SexMale:
		return Yes, true
	case SexFemale:
		return No, true
	default:
		return Unset, false
	}
}

// ContractFormData is the semantic input of one CERFA 10103*10 generation.
// Every section and every leaf is optional.
type ContractFormData struct {
	ID             string `json:"id,omitempty" cerfa:"-"`
	ContractNumber string `json:"contractNumber,omitempty" cerfa:"-"`
	Status         string `json:"status,omitempty" cerfa:"-"`
	StartDate      string `json:"startDate,omitempty" cerfa:"-"`
	EndDate        string `json:"endDate,omitempty" cerfa:"-"`

	Employer     *Employer     `json:"employer,omitempty"`
	Apprentice   *Apprentice   `json:"apprentice,omitempty"`
	Master1      *Master       `json:"master1,omitempty"`
	Master2      *Master       `json:"master2,omitempty"`
	Contract     *Contract     `json:"contract,omitempty"`
	Remuneration *Remuneration `json:"remuneration,omitempty"`
	CFA          *CFA          `json:"cfa,omitempty"`
	Training     *Training     `json:"training,omitempty"`
	Signature    *Signature    `json:"signature,omitempty"`
	Admin        *Admin        `json:"admin,omitempty"`
}

type Employer struct {
	Name              Text `json:"name,omitempty"`
	Siret             Text `json:"siret,omitempty"`
	AddressNumber     Text `json:"addressNumber,omitempty"`
	AddressStreet     Text `json:"addressStreet,omitempty"`
	AddressComplement Text `json:"addressComplement,omitempty"`
	PostalCode        Text `json:"postalCode,omitempty"`
	City              Text `json:"city,omitempty"`
	Phone             Text `json:"phone,omitempty"`
	Email             Text `json:"email,omitempty"`
	Type              Text `json:"type,omitempty"`
	Specific          Text `json:"specific,omitempty"`
	NafCode           Text `json:"nafCode,omitempty"`
	TotalEmployees    Text `json:"totalEmployees,omitempty"`
	Idcc              Text `json:"idcc,omitempty"`
}

type Apprentice struct {
	LastName          Text     `json:"lastName,omitempty"`
	UsageName         Text     `json:"usageName,omitempty"`
	FirstName         Text     `json:"firstName,omitempty"`
	Nir               Text     `json:"nir,omitempty"`
	BirthDate         Text     `json:"birthDate,omitempty"`
	Sex               Sex      `json:"sex,omitempty"`
	AddressNumber     Text     `json:"addressNumber,omitempty"`
	AddressStreet     Text     `json:"addressStreet,omitempty"`
	AddressComplement Text     `json:"addressComplement,omitempty"`
	PostalCode        Text     `json:"postalCode,omitempty"`
	City              Text     `json:"city,omitempty"`
	BirthDepartment   Text     `json:"birthDepartment,omitempty"`
	BirthCity         Text     `json:"birthCity,omitempty"`
	Nationality       Text     `json:"nationality,omitempty"`
	SocialRegime      Text     `json:"socialRegime,omitempty"`
	Phone             Text     `json:"phone,omitempty"`
	Email             Text     `json:"email,omitempty"`
	HighLevelAthlete  TriState `json:"highLevelAthlete,omitempty"`
	DisabledWorker    TriState `json:"disabledWorker,omitempty"`
	PreviousSituation Text     `json:"previousSituation,omitempty"`
	LastDiploma       Text     `json:"lastDiploma,omitempty"`
	LastClassYear     Text     `json:"lastClassYear,omitempty"`
	LastDiplomaTitle  Text     `json:"lastDiplomaTitle,omitempty"`
	HighestDiploma    Text     `json:"highestDiploma,omitempty"`
	BusinessProject   TriState `json:"businessProject,omitempty"`
}

// Master is a supervising employee (maître d'apprentissage).
type Master struct {
	LastName     Text `json:"lastName,omitempty"`
	FirstName    Text `json:"firstName,omitempty"`
	BirthDate    Text `json:"birthDate,omitempty"`
	Nir          Text `json:"nir,omitempty"`
	Email        Text `json:"email,omitempty"`
	JobTitle     Text `json:"jobTitle,omitempty"`
	Diploma      Text `json:"diploma,omitempty"`
	DiplomaLevel Text `json:"diplomaLevel,omitempty"`
}

type Contract struct {
	Type                       Text     `json:"type,omitempty"`
	DerogationType             Text     `json:"derogationType,omitempty"`
	PreviousContractNumber     Text     `json:"previousContractNumber,omitempty"`
	ConclusionDate             Text     `json:"conclusionDate,omitempty"`
	ExecutionStartDate         Text     `json:"executionStartDate,omitempty"`
	PracticalTrainingStartDate Text     `json:"practicalTrainingStartDate,omitempty"`
	AmendmentEffectiveDate     Text     `json:"amendmentEffectiveDate,omitempty"`
	WeeklyWorkHours            Text     `json:"weeklyWorkHours,omitempty"`
	WeeklyWorkMinutes          Text     `json:"weeklyWorkMinutes,omitempty"`
	EndDate                    Text     `json:"endDate,omitempty"`
	DangerousMachines          TriState `json:"dangerousMachines,omitempty"`
}

// RemunerationYear holds up to two salary periods of one contract year.
type RemunerationYear struct {
	StartDate1  Text `json:"startDate1,omitempty"`
	EndDate1    Text `json:"endDate1,omitempty"`
	Percentage1 Text `json:"percentage1,omitempty"`
	Reference1  Text `json:"reference1,omitempty"`
	StartDate2  Text `json:"startDate2,omitempty"`
	EndDate2    Text `json:"endDate2,omitempty"`
	Percentage2 Text `json:"percentage2,omitempty"`
	Reference2  Text `json:"reference2,omitempty"`
}

type Remuneration struct {
	Year1                *RemunerationYear `json:"year1,omitempty"`
	Year2                *RemunerationYear `json:"year2,omitempty"`
	Year3                *RemunerationYear `json:"year3,omitempty"`
	Year4                *RemunerationYear `json:"year4,omitempty"`
	MonthlySalary        Text              `json:"monthlySalary,omitempty"`
	RetirementFund       Text              `json:"retirementFund,omitempty"`
	BenefitFoodAmount    Text              `json:"benefitFoodAmount,omitempty"`
	BenefitHousingAmount Text              `json:"benefitHousingAmount,omitempty"`
	BenefitOther         Text              `json:"benefitOther,omitempty"`
}

// CFA is the training provider (centre de formation d'apprentis).
type CFA struct {
	IsCompany         TriState `json:"isCompany,omitempty"`
	Name              Text     `json:"name,omitempty"`
	Uai               Text     `json:"uai,omitempty"`
	Siret             Text     `json:"siret,omitempty"`
	AddressNumber     Text     `json:"addressNumber,omitempty"`
	AddressStreet     Text     `json:"addressStreet,omitempty"`
	AddressComplement Text     `json:"addressComplement,omitempty"`
	PostalCode        Text     `json:"postalCode,omitempty"`
	City              Text     `json:"city,omitempty"`
}

type Training struct {
	TargetDiploma                      Text `json:"targetDiploma,omitempty"`
	DiplomaTitle                       Text `json:"diplomaTitle,omitempty"`
	DiplomaCode                        Text `json:"diplomaCode,omitempty"`
	RncpCode                           Text `json:"rncpCode,omitempty"`
	Organization                       Text `json:"organization,omitempty"`
	StartDate                          Text `json:"startDate,omitempty"`
	EndDate                            Text `json:"endDate,omitempty"`
	Hours                              Text `json:"hours,omitempty"`
	AlternateLocation                  Text `json:"alternateLocation,omitempty"`
	AlternateLocationUai               Text `json:"alternateLocationUai,omitempty"`
	AlternateLocationSiret             Text `json:"alternateLocationSiret,omitempty"`
	AlternateLocationAddressNumber     Text `json:"alternateLocationAddressNumber,omitempty"`
	AlternateLocationAddressStreet     Text `json:"alternateLocationAddressStreet,omitempty"`
	AlternateLocationAddressComplement Text `json:"alternateLocationAddressComplement,omitempty"`
	AlternateLocationPostalCode        Text `json:"alternateLocationPostalCode,omitempty"`
	AlternateLocationCity              Text `json:"alternateLocationCity,omitempty"`
}

type Signature struct {
	City Text `json:"city,omitempty"`
	Date Text `json:"date,omitempty"`
}

// Admin is reserved for the receiving administration and is usually empty.
type Admin struct {
	OrganismName    Text `json:"organismName,omitempty"`
	OrganismSiret   Text `json:"organismSiret,omitempty"`
	ReceptionDate   Text `json:"receptionDate,omitempty"`
	DecisionDate    Text `json:"decisionDate,omitempty"`
	DepositNumber   Text `json:"depositNumber,omitempty"`
	AmendmentNumber Text `json:"amendmentNumber,omitempty"`
}
