package cerfa

import (
	"sort"
)

const (
	// FieldMappingVersion must be bumped whenever a physical name changes or
	// a field is added to or removed from the default map.
	FieldMappingVersion = "1.0.0"

	// FormVersion identifies the government form the template implements.
	FormVersion = "10103_10"
)

// MappingKind says how a semantic field is rendered.
type MappingKind string

const (
	MappingText MappingKind = "text"
	MappingPair MappingKind = "pair"
)

// Mapping is the physical side of one semantic field: a text field name, or
// the yes (M) and no (F) boxes of a checkbox pair.
type Mapping struct {
	Kind MappingKind `json:"kind"`
	Name string      `json:"name,omitempty"`
	Yes  string      `json:"yes,omitempty"`
	No   string      `json:"no,omitempty"`
}

// PhysicalNames lists the template fields the mapping refers to.
func (m Mapping) PhysicalNames() []string {
	if m.Kind == MappingPair {
		return []string{m.Yes, m.No}
	}
	return []string{m.Name}
}

func text(name string) Mapping { return Mapping{Kind: MappingText, Name: name} }

func pair(yes, no string) Mapping { return Mapping{Kind: MappingPair, Yes: yes, No: no} }

// FieldMap is an immutable, versioned table from field ids (dotted JSON paths
// of ContractFormData leaves) to physical template fields.
type FieldMap struct {
	version string
	entries map[string]Mapping
}

// NewFieldMap copies entries into a new map.
func NewFieldMap(version string, entries map[string]Mapping) *FieldMap {
	m := &FieldMap{version: version, entries: make(map[string]Mapping, len(entries))}
	for id, mapping := range entries {
		m.entries[id] = mapping
	}
	return m
}

var defaultFieldMap = NewFieldMap(FieldMappingVersion, defaultEntries)

// DefaultFieldMap returns the map for the CERFA 10103*10 template.
func DefaultFieldMap() *FieldMap { return defaultFieldMap }

func (m *FieldMap) Version() string { return m.version }

func (m *FieldMap) Len() int { return len(m.entries) }

// Lookup returns the mapping for id, if any.
func (m *FieldMap) Lookup(id string) (Mapping, bool) {
	mapping, ok := m.entries[id]
	return mapping, ok
}

// IDs returns every mapped field id in sorted order.
func (m *FieldMap) IDs() []string {
	ids := make([]string, 0, len(m.entries))
	for id := range m.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// PhysicalNames returns every template field name the map refers to, sorted.
func (m *FieldMap) PhysicalNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, mapping := range m.entries {
		for _, name := range mapping.PhysicalNames() {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

// Entries returns a copy of the table.
func (m *FieldMap) Entries() map[string]Mapping {
	out := make(map[string]Mapping, len(m.entries))
	for id, mapping := range m.entries {
		out[id] = mapping
	}
	return out
}

var defaultEntries = map[string]Mapping{
	// Employeur
	"employer.name":              text("text_1exb"),
	"employer.siret":             text("text_8nshp"),
	"employer.addressNumber":     text("text_2bcjf"),
	"employer.addressStreet":     text("text_3zcks"),
	"employer.addressComplement": text("text_9wvky"),
	"employer.postalCode":        text("text_10dbyf"),
	"employer.city":              text("text_11zobb"),
	"employer.phone":             text("text_12ckab"),
	"employer.email":             text("text_13ifko"),
	"employer.type":              text("text_18hlcf"),
	"employer.specific":          text("text_27ibfd"),
	"employer.nafCode":           text("text_14lejr"),
	"employer.totalEmployees":    text("text_15qkda"),
	"employer.idcc":              text("text_16rwtn"),

	// Apprenti(e)
	"apprentice.lastName":          text("text_31tkvp"),
	"apprentice.usageName":         text("text_33ijka"),
	"apprentice.firstName":         text("text_34zhaf"),
	"apprentice.nir":               text("text_35pzck"),
	"apprentice.birthDate":         text("text_36ldqh"),
	"apprentice.sex":               pair("checkbox_51itfw", "checkbox_52dfmo"),
	"apprentice.addressNumber":     text("text_39gpxj"),
	"apprentice.addressStreet":     text("text_40nksu"),
	"apprentice.addressComplement": text("text_41lzzc"),
	"apprentice.postalCode":        text("text_42bmvd"),
	"apprentice.city":              text("text_32rrxh"),
	"apprentice.birthDepartment":   text("text_37wwzu"),
	"apprentice.birthCity":         text("text_38fqwe"),
	"apprentice.nationality":       text("text_47lloa"),
	"apprentice.socialRegime":      text("text_48ekvo"),
	"apprentice.phone":             text("text_49chhs"),
	"apprentice.email":             text("text_50avys"),
	"apprentice.highLevelAthlete":  pair("checkbox_62uqtx", "checkbox_5upxo"),
	"apprentice.disabledWorker":    pair("checkbox_7ocmh", "checkbox_88pmyq"),
	"apprentice.previousSituation": text("text_54tog"),
	"apprentice.lastDiploma":       text("text_55y"),
	"apprentice.lastClassYear":     text("text_56jasz"),
	"apprentice.lastDiplomaTitle":  text("text_57pplz"),
	"apprentice.highestDiploma":    text("text_58pgjd"),
	"apprentice.businessProject":   pair("checkbox_84zotl", "checkbox_90thrm"),

	// Maître d'apprentissage n°1
	"master1.lastName":     text("text_76lrya"),
	"master1.firstName":    text("text_78jnsb"),
	"master1.birthDate":    text("text_79fpuo"),
	"master1.nir":          text("text_80jtyl"),
	"master1.email":        text("text_81oxuj"),
	"master1.jobTitle":     text("text_82tbzb"),
	"master1.diploma":      text("text_85nxhd"),
	"master1.diplomaLevel": text("text_75tsxh"),

	// Maître d'apprentissage n°2
	"master2.lastName":     text("text_68qsoo"),
	"master2.firstName":    text("text_69ldez"),
	"master2.birthDate":    text("text_70zknq"),
	"master2.nir":          text("text_71czqp"),
	"master2.email":        text("text_72rzat"),
	"master2.jobTitle":     text("text_73fmgm"),
	"master2.diploma":      text("text_77lfxs"),
	"master2.diplomaLevel": text("text_74trwm"),

	// Contrat
	"contract.type":                       text("text_97iuva"),
	"contract.derogationType":             text("text_94apkz"),
	"contract.previousContractNumber":     text("text_92akky"),
	"contract.conclusionDate":             text("text_93mlle"),
	"contract.executionStartDate":         text("text_95psuy"),
	"contract.practicalTrainingStartDate": text("text_96jvfx"),
	"contract.amendmentEffectiveDate":     text("text_100puso"),
	"contract.weeklyWorkHours":            text("text_99sksn"),
	"contract.weeklyWorkMinutes":          text("text_101npnm"),
	"contract.endDate":                    text("text_102hu"),
	"contract.dangerousMachines":          pair("checkbox_86ojxt", "checkbox_87zxsw"),

	// Rémunération, 1re année
	"remuneration.year1.startDate1":  text("text_107glkc"),
	"remuneration.year1.endDate1":    text("text_108txvl"),
	"remuneration.year1.percentage1": text("text_113ojtt"),
	"remuneration.year1.reference1":  text("text_109sqsh"),
	"remuneration.year1.startDate2":  text("text_110hron"),
	"remuneration.year1.endDate2":    text("text_111bqpg"),
	"remuneration.year1.percentage2": text("text_112wueq"),
	"remuneration.year1.reference2":  text("text_103dptq"),

	// 2e année
	"remuneration.year2.startDate1":  text("text_116igca"),
	"remuneration.year2.endDate1":    text("text_119tszr"),
	"remuneration.year2.percentage1": text("text_127hyaj"),
	"remuneration.year2.reference1":  text("text_118ec"),
	"remuneration.year2.startDate2":  text("text_123movy"),
	"remuneration.year2.endDate2":    text("text_128xqew"),
	"remuneration.year2.percentage2": text("text_126eeyn"),
	"remuneration.year2.reference2":  text("text_133lohh"),

	// 3e année
	"remuneration.year3.startDate1":  text("text_129ztfp"),
	"remuneration.year3.endDate1":    text("text_130jzgp"),
	"remuneration.year3.percentage1": text("text_131hcbr"),
	"remuneration.year3.reference1":  text("text_132ompm"),
	"remuneration.year3.startDate2":  text("text_133dvjk"),
	"remuneration.year3.endDate2":    text("text_134wrhq"),
	"remuneration.year3.percentage2": text("text_144qgnp"),
	"remuneration.year3.reference2":  text("text_98syzp"),

	// 4e année
	"remuneration.year4.startDate1":  text("text_190aaoh"),
	"remuneration.year4.endDate1":    text("text_191alwj"),
	"remuneration.year4.percentage1": text("text_192nfph"),
	"remuneration.year4.reference1":  text("text_193mvke"),
	"remuneration.year4.startDate2":  text("text_199bpjv"),
	"remuneration.year4.endDate2":    text("text_200nmeh"),
	"remuneration.year4.percentage2": text("text_201aqxb"),
	"remuneration.year4.reference2":  text("text_104vrbz"),

	"remuneration.monthlySalary":        text("text_105duvn"),
	"remuneration.retirementFund":       text("text_106iyhp"),
	"remuneration.benefitFoodAmount":    text("text_63fjsf"),
	"remuneration.benefitHousingAmount": text("text_60jxp"),
	"remuneration.benefitOther":         text("text_61pwnb"),

	// Formation, CFA
	"cfa.isCompany":         pair("checkbox_194bnrb", "checkbox_196ixda"),
	"cfa.name":              text("text_139ftdv"),
	"cfa.uai":               text("text_140cagp"),
	"cfa.siret":             text("text_141hnaz"),
	"cfa.addressNumber":     text("text_142xplj"),
	"cfa.addressStreet":     text("text_143bcnv"),
	"cfa.addressComplement": text("text_145yoqy"),
	"cfa.postalCode":        text("text_146tvko"),
	"cfa.city":              text("text_147kwez"),

	// Formation, diplôme et lieu
	"training.targetDiploma":                      text("text_154wadn"),
	"training.diplomaTitle":                       text("text_155oqyv"),
	"training.diplomaCode":                        text("text_156puge"),
	"training.rncpCode":                           text("text_157qqvj"),
	"training.organization":                       text("text_158tqcd"),
	"training.startDate":                          text("text_159cxaa"),
	"training.endDate":                            text("text_160wnav"),
	"training.hours":                              text("text_161jcwj"),
	"training.alternateLocation":                  text("text_169yeej"),
	"training.alternateLocationUai":               text("text_170cps"),
	"training.alternateLocationSiret":             text("text_171bamt"),
	"training.alternateLocationAddressNumber":     text("text_172noho"),
	"training.alternateLocationAddressStreet":     text("text_174fdqn"),
	"training.alternateLocationAddressComplement": text("text_175icpv"),
	"training.alternateLocationPostalCode":        text("text_176lnxw"),
	"training.alternateLocationCity":              text("text_177xazh"),

	// Signatures
	"signature.city": text("text_202jfym"),
	"signature.date": text("text_203dtht"),

	// Cadre réservé à l'organisme
	"admin.organismName":    text("text_204zzqy"),
	"admin.organismSiret":   text("text_205rfln"),
	"admin.receptionDate":   text("text_206qolq"),
	"admin.decisionDate":    text("text_207ibxg"),
	"admin.depositNumber":   text("text_208ctvi"),
	"admin.amendmentNumber": text("text_209bfyt"),
}
