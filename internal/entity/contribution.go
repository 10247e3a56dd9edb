package entity

import (
	"sort"
	"time"

	"github.com/samber/lo"
)

// Contribution is a citable unit of a dataset, typically one chapter
// or one survey, with credited contributors.
type Contribution struct {
	Base
	Poly
	Versioned
	IDNameDescription

	Date *time.Time `json:"date,omitempty"`

	Credits []ContributionContributor `gorm:"foreignKey:ContributionPK;references:PK" json:"credits,omitempty"`
	Data    []Datum                   `gorm:"polymorphic:Object;polymorphicValue:contribution" json:"data,omitempty"`
	Files   []File                    `gorm:"polymorphic:Object;polymorphicValue:contribution" json:"files,omitempty"`
}

func (Contribution) TableName() string { return "contributions" }

func (c *Contribution) ObjectKind() Kind { return KindContribution }

// NewContribution returns a base-variant contribution.
func NewContribution(id, name string) *Contribution {
	return &Contribution{
		Poly:              Poly{PolymorphicType: BaseVariant},
		IDNameDescription: IDNameDescription{ID: id, Name: name},
	}
}

// sortedCredits returns credits ordered by ord, then pk.
func (c *Contribution) sortedCredits() []ContributionContributor {
	credits := make([]ContributionContributor, len(c.Credits))
	copy(credits, c.Credits)
	sort.SliceStable(credits, func(i, j int) bool {
		if credits[i].Ord != credits[j].Ord {
			return credits[i].Ord < credits[j].Ord
		}
		return credits[i].PK < credits[j].PK
	})
	return credits
}

// PrimaryContributors returns the contributors credited as primary
// authors, in credit order. The Credits association must be loaded
// with its Contributor side.
func (c *Contribution) PrimaryContributors() []Contributor {
	return c.contributors(true)
}

// SecondaryContributors returns the contributors credited in a
// secondary role, in credit order.
func (c *Contribution) SecondaryContributors() []Contributor {
	return c.contributors(false)
}

func (c *Contribution) contributors(primary bool) []Contributor {
	credits := lo.Filter(c.sortedCredits(), func(cc ContributionContributor, _ int) bool {
		return cc.Primary == primary && cc.Contributor != nil
	})
	return lo.Map(credits, func(cc ContributionContributor, _ int) Contributor {
		return *cc.Contributor
	})
}

// DataDict returns the key/value annotations as a map.
func (c *Contribution) DataDict() map[string]string { return DataDict(c.Data) }

// FilesDict returns the file annotations keyed by name.
func (c *Contribution) FilesDict() map[string]File { return FilesDict(c.Files) }

// Contributor is a person or institution credited in contributions.
type Contributor struct {
	Base
	Poly
	Versioned
	IDNameDescription

	URL     string `gorm:"size:255" json:"url,omitempty"`
	Email   string `gorm:"size:255" json:"email,omitempty"`
	Address string `json:"address,omitempty"`

	Credits []ContributionContributor `gorm:"foreignKey:ContributorPK;references:PK" json:"-"`
	Data    []Datum                   `gorm:"polymorphic:Object;polymorphicValue:contributor" json:"data,omitempty"`
	Files   []File                    `gorm:"polymorphic:Object;polymorphicValue:contributor" json:"files,omitempty"`
}

func (Contributor) TableName() string { return "contributors" }

func (c *Contributor) ObjectKind() Kind { return KindContributor }

// NewContributor returns a base-variant contributor.
func NewContributor(id, name string) *Contributor {
	return &Contributor{
		Poly:              Poly{PolymorphicType: BaseVariant},
		IDNameDescription: IDNameDescription{ID: id, Name: name},
	}
}

// ContributionContributor credits a contributor on a contribution.
// Ord fixes the display order; Primary separates authors from people
// credited in a secondary role (editors, assistants).
type ContributionContributor struct {
	Base
	Versioned

	ContributionPK int64 `gorm:"not null" json:"contribution_pk"`
	ContributorPK  int64 `gorm:"not null" json:"contributor_pk"`
	Ord            int   `gorm:"not null;default:1" json:"ord"`
	// no column default: false must survive the insert
	Primary bool `gorm:"column:primary;not null" json:"primary"`

	Contribution *Contribution `gorm:"foreignKey:ContributionPK;references:PK" json:"-"`
	Contributor  *Contributor  `gorm:"foreignKey:ContributorPK;references:PK" json:"contributor,omitempty"`
}

// NewCredit returns a credit row. Most contributors are credited as
// primary authors, so that is the zero-config choice.
func NewCredit(contributionPK, contributorPK int64, ord int, primary bool) *ContributionContributor {
	return &ContributionContributor{
		ContributionPK: contributionPK,
		ContributorPK:  contributorPK,
		Ord:            ord,
		Primary:        primary,
	}
}

func (ContributionContributor) TableName() string { return "contribution_contributors" }

func (cc *ContributionContributor) ObjectKind() Kind { return KindContributionContributor }
