package procedure

import (
	"strings"

	"github.com/custodia-labs/postop-collector/internal/core/domain"
)

// Profile is the scoring vocabulary for one procedure category.
type Profile struct {
	Category    domain.ProcedureCategory
	Keywords    []string
	Specialties []string
	Weight      float64
}

// DefaultProfiles returns the built-in category profiles with all terms
// lowercased so they can be matched against lowercased text.
func DefaultProfiles() []Profile {
	profiles := []Profile{
		{
			Category: domain.ProcedureOrthopedic,
			Keywords: []string{
				"knee replacement", "hip replacement", "joint replacement",
				"arthroscopy", "arthroscopic", "fracture", "bone",
				"ligament", "tendon", "rotator cuff", "meniscus",
				"spine", "spinal fusion", "disc", "vertebrae",
				"shoulder", "ankle", "wrist", "elbow",
				"total knee", "total hip", "TKA", "THA",
				"ACL", "PCL", "MCL", "reconstruction",
			},
			Specialties: []string{"orthopedic", "orthopaedic", "orthopedist"},
			Weight:      1.0,
		},
		{
			Category: domain.ProcedureCardiac,
			Keywords: []string{
				"heart", "cardiac", "coronary", "bypass", "CABG",
				"valve", "angioplasty", "stent", "pacemaker",
				"defibrillator", "ablation", "cardiovascular",
				"aortic", "mitral", "tricuspid", "pulmonary",
				"aneurysm", "arrhythmia", "atrial", "ventricular",
			},
			Specialties: []string{"cardiac", "cardiology", "cardiovascular"},
			Weight:      1.0,
		},
		{
			Category: domain.ProcedureGeneralSurgery,
			Keywords: []string{
				"appendectomy", "appendix", "gallbladder", "cholecystectomy",
				"hernia", "inguinal", "umbilical", "hiatal",
				"bowel", "intestine", "colon", "colectomy",
				"hemorrhoid", "fistula", "abscess", "laparoscopy",
				"laparoscopic", "abdominal", "stomach", "gastric",
			},
			Specialties: []string{"general surgery", "general surgeon"},
			Weight:      0.9,
		},
		{
			Category: domain.ProcedureNeurological,
			Keywords: []string{
				"brain", "neurosurgery", "craniotomy", "tumor",
				"aneurysm", "spine", "spinal cord", "nerve",
				"disc", "laminectomy", "discectomy", "fusion",
				"shunt", "epilepsy", "deep brain", "gamma knife",
			},
			Specialties: []string{"neurosurgery", "neurological", "neurosurgeon"},
			Weight:      1.0,
		},
		{
			Category: domain.ProcedureUrological,
			Keywords: []string{
				"prostate", "prostatectomy", "bladder", "kidney",
				"ureter", "urethra", "stone", "lithotripsy",
				"cystoscopy", "vasectomy", "hydrocele", "varicocele",
				"incontinence", "urinary", "renal", "nephrectomy",
			},
			Specialties: []string{"urology", "urological", "urologist"},
			Weight:      0.95,
		},
		{
			Category: domain.ProcedureGynecological,
			Keywords: []string{
				"hysterectomy", "ovary", "ovarian", "uterus",
				"fibroid", "endometriosis", "cesarean", "c-section",
				"tubal", "cervical", "vaginal", "laparoscopy",
				"myomectomy", "oophorectomy", "salpingectomy",
			},
			Specialties: []string{"gynecology", "gynecological", "obstetrics"},
			Weight:      0.95,
		},
		{
			Category: domain.ProcedurePlasticSurgery,
			Keywords: []string{
				"reconstruction", "plastic surgery", "cosmetic",
				"breast", "augmentation", "reduction", "lift",
				"tummy tuck", "abdominoplasty", "liposuction",
				"rhinoplasty", "facelift", "skin graft", "flap",
			},
			Specialties: []string{"plastic surgery", "cosmetic", "reconstructive"},
			Weight:      0.9,
		},
		{
			Category: domain.ProcedureENT,
			Keywords: []string{
				"tonsillectomy", "tonsil", "adenoidectomy", "adenoid",
				"sinus", "septoplasty", "turbinate", "ear",
				"tympanoplasty", "mastoidectomy", "thyroid",
				"thyroidectomy", "laryngoscopy", "vocal", "throat",
			},
			Specialties: []string{"ENT", "otolaryngology", "ear nose throat"},
			Weight:      0.95,
		},
		{
			Category: domain.ProcedureOphthalmic,
			Keywords: []string{
				"cataract", "lens", "glaucoma", "retina",
				"cornea", "LASIK", "PRK", "vision",
				"eye surgery", "vitrectomy", "macular",
				"strabismus", "pterygium", "blepharoplasty",
			},
			Specialties: []string{"ophthalmology", "ophthalmic", "eye"},
			Weight:      0.95,
		},
		{
			Category: domain.ProcedureDental,
			Keywords: []string{
				"tooth", "teeth", "extraction", "wisdom",
				"implant", "dental", "oral surgery", "jaw",
				"TMJ", "maxillofacial", "gum", "periodontal",
				"root canal", "crown", "bridge",
			},
			Specialties: []string{"dental", "oral surgery", "maxillofacial"},
			Weight:      0.9,
		},
		{
			Category: domain.ProcedureVascular,
			Keywords: []string{
				"vascular", "artery", "vein", "aneurysm",
				"carotid", "endovascular", "bypass", "graft",
				"varicose", "thrombosis", "embolism", "stent",
				"angiogram", "endarterectomy", "fistula",
			},
			Specialties: []string{"vascular", "vascular surgery"},
			Weight:      0.95,
		},
		{
			Category: domain.ProcedureGastrointestinal,
			Keywords: []string{
				"gastric", "stomach", "esophagus", "intestinal",
				"colostomy", "ileostomy", "bariatric", "sleeve",
				"bypass", "band", "reflux", "GERD",
				"endoscopy", "colonoscopy", "polyp", "resection",
			},
			Specialties: []string{"gastroenterology", "GI", "bariatric"},
			Weight:      0.9,
		},
	}

	for i := range profiles {
		profiles[i].Keywords = lowerAll(profiles[i].Keywords)
		profiles[i].Specialties = lowerAll(profiles[i].Specialties)
	}
	return profiles
}

func lowerAll(terms []string) []string {
	out := make([]string, len(terms))
	for i, t := range terms {
		out[i] = strings.ToLower(t)
	}
	return out
}

var bodyParts = []string{
	"knee", "hip", "shoulder", "ankle", "wrist", "elbow",
	"spine", "back", "neck", "heart", "lung", "liver",
	"kidney", "bladder", "prostate", "uterus", "ovary",
	"stomach", "intestine", "colon", "gallbladder",
	"brain", "eye", "ear", "nose", "throat", "thyroid",
}

var approaches = []struct {
	name  string
	terms []string
}{
	{"minimally_invasive", []string{"minimally invasive", "arthroscopic", "laparoscopic", "endoscopic"}},
	{"open", []string{"open surgery", "open procedure", "traditional approach"}},
	{"robotic", []string{"robotic", "robot-assisted", "da vinci"}},
	{"percutaneous", []string{"percutaneous", "through the skin"}},
}

var implantTerms = []string{
	"implant", "prosthesis", "prosthetic", "graft",
	"mesh", "plate", "screw", "rod", "pin",
	"stent", "valve", "pacemaker", "defibrillator",
}

var complexityLevels = []struct {
	name  string
	terms []string
}{
	{"complex", []string{"complex", "complicated", "extensive", "revision", "multi-level", "multiple", "combined", "staged"}},
	{"moderate", []string{"standard", "routine", "typical", "conventional"}},
	{"simple", []string{"simple", "minor", "straightforward", "uncomplicated"}},
}

// ComplexityStandard is reported when no qualifier word is present.
const ComplexityStandard = "standard"
